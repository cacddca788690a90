package antifraud

import (
	"context"
	"testing"
	"time"

	"designhub-points/pkg/repository"
	"designhub-points/services/member"
	"designhub-points/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &RiskAlert{}, &member.User{}, &eventRow{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	members := member.NewService(member.ServiceParams{
		Users: repository.ProvideStore[member.User](db),
	})

	return NewService(ServiceParams{
		DB:      db,
		Alerts:  repository.ProvideStore[RiskAlert](db),
		Members: members,
		Node:    node,
	}), db
}

// eventRow mirrors the download event columns the detectors read.
type eventRow struct {
	ID           string    `gorm:"column:id;primaryKey"`
	DownloaderID string    `gorm:"column:downloader_id"`
	ResourceID   string    `gorm:"column:resource_id"`
	IPAddress    string    `gorm:"column:ip_address"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (eventRow) TableName() string { return "download_events" }

func TestScanResourceFrequencyRaisesAlertOnce(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 20 downloads from 2 accounts: unique ratio 10%
	for i := 0; i < 20; i++ {
		user := "u1"
		if i%2 == 0 {
			user = "u2"
		}
		require.NoError(t, db.Create(&eventRow{
			ID:           string(rune('a' + i)),
			DownloaderID: user,
			ResourceID:   "r1",
			CreatedAt:    time.Now().Add(-time.Duration(i) * time.Minute),
		}).Error)
	}

	require.NoError(t, svc.ScanResourceFrequency(ctx, "r1"))
	require.NoError(t, svc.ScanResourceFrequency(ctx, "r1"))

	alerts, total, err := svc.ListAlerts(ctx, AlertPending, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, TriggerHighFrequency, alerts[0].TriggerType)
	require.Equal(t, "r1", alerts[0].ResourceID)
}

func TestScanNewAccountBurst(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 12; i++ {
		userID := string(rune('a' + i))
		createdAt := now.Add(-30 * 24 * time.Hour)
		if i < 8 {
			createdAt = now.Add(-24 * time.Hour)
		}
		require.NoError(t, db.Create(&member.User{
			ID:        userID,
			Status:    member.StatusActive,
			CreatedAt: createdAt,
		}).Error)
		require.NoError(t, db.Create(&eventRow{
			ID:           "e" + userID,
			DownloaderID: userID,
			ResourceID:   "r1",
			CreatedAt:    now.Add(-time.Hour),
		}).Error)
	}

	require.NoError(t, svc.ScanNewAccountBurst(ctx, "r1"))

	alerts, total, err := svc.ListAlerts(ctx, AlertPending, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, TriggerNewAccountBurst, alerts[0].TriggerType)
}

func TestScanClustersFlagsSharedIPGroup(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	base := time.Now().Add(-2 * time.Hour)
	for i, userID := range []string{"u1", "u2"} {
		require.NoError(t, db.Create(&member.User{
			ID:        userID,
			Status:    member.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * 10 * time.Minute),
		}).Error)
		for j, res := range []string{"r1", "r2", "r3"} {
			require.NoError(t, db.Create(&eventRow{
				ID:           userID + res,
				DownloaderID: userID,
				ResourceID:   res,
				IPAddress:    "9.9.9.9",
				CreatedAt:    base.Add(time.Duration(j) * time.Minute),
			}).Error)
		}
	}

	require.NoError(t, svc.ScanClusters(ctx))

	alerts, total, err := svc.ListAlerts(ctx, AlertPending, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, TriggerAccountCluster, alerts[0].TriggerType)
	require.Equal(t, "ip:9.9.9.9", alerts[0].ResourceID)
}

func TestReviewAlertTransitionsOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RaiseSelfDownloadAlert(ctx, "r1", "u1"))

	alerts, _, err := svc.ListAlerts(ctx, AlertPending, 1, 20)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	reviewed, err := svc.ReviewAlert(ctx, alerts[0].ID, "admin1", true, "confirmed abuse")
	require.NoError(t, err)
	require.Equal(t, AlertApproved, reviewed.Status)
	require.Equal(t, "admin1", reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)

	_, err = svc.ReviewAlert(ctx, alerts[0].ID, "admin2", false, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already been reviewed")
}

func TestReviewAlertNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ReviewAlert(context.Background(), "missing", "admin1", true, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
