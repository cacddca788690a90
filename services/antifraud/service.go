package antifraud

import (
	"context"
	"encoding/json"
	"time"

	"designhub-points/pkg/db/option"
	"designhub-points/pkg/errutil"
	"designhub-points/pkg/repository"
	"designhub-points/services/member"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ServiceModule wires the detectors and the alert queue without the HTTP
// surface; the sweeper runs it headless.
var ServiceModule = fx.Module("antifraud",
	fx.Provide(repository.ProvideStore[RiskAlert]),
	fx.Provide(NewService),
)

var Module = fx.Module("antifraud-http",
	ServiceModule,
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// downloadSample is a read-only projection over the download service's
// event table. The detectors only aggregate it.
type downloadSample struct {
	DownloaderID string    `gorm:"column:downloader_id"`
	ResourceID   string    `gorm:"column:resource_id"`
	IPAddress    string    `gorm:"column:ip_address"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (downloadSample) TableName() string { return "download_events" }

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Alerts  repository.Repository[RiskAlert]
	Members *member.Service
	Node    *snowflake.Node
}

// Service aggregates download history into detector inputs and manages the
// risk alert queue. Detection never blocks or punishes on its own; it only
// queues alerts for human review.
type Service struct {
	db      *gorm.DB
	alerts  repository.Repository[RiskAlert]
	members *member.Service
	node    *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		alerts:  p.Alerts,
		members: p.Members,
		node:    p.Node,
	}
}

// ScanResourceFrequency recomputes the resource's rolling counts and
// raises a high_frequency alert when they look anomalous.
func (s *Service) ScanResourceFrequency(ctx context.Context, resourceID string) error {
	stats, err := s.collectFrequencyStats(ctx, resourceID)
	if err != nil {
		return err
	}

	verdict := DetectFrequencyAnomaly(stats)
	if !verdict.Anomalous {
		return nil
	}

	data, _ := json.Marshal(map[string]any{
		"reason": verdict.Reason,
		"stats":  stats,
	})
	return s.raiseAlert(ctx, resourceID, TriggerHighFrequency, data)
}

func (s *Service) collectFrequencyStats(ctx context.Context, resourceID string) (FrequencyStats, error) {
	var stats FrequencyStats
	now := time.Now()

	count := func(since *time.Time, dest *int64) error {
		q := s.db.WithContext(ctx).Model(&downloadSample{}).Where("resource_id = ?", resourceID)
		if since != nil {
			q = q.Where("created_at >= ?", *since)
		}
		return q.Count(dest).Error
	}

	for _, w := range []struct {
		ago  time.Duration
		dest *int64
	}{
		{24 * time.Hour, &stats.Count24h},
		{7 * 24 * time.Hour, &stats.Count7d},
		{30 * 24 * time.Hour, &stats.Count30d},
	} {
		since := now.Add(-w.ago)
		if err := count(&since, w.dest); err != nil {
			return stats, errutil.Internal("failed to count downloads", err)
		}
	}
	if err := count(nil, &stats.Total); err != nil {
		return stats, errutil.Internal("failed to count downloads", err)
	}

	err := s.db.WithContext(ctx).
		Model(&downloadSample{}).
		Where("resource_id = ?", resourceID).
		Distinct("downloader_id").
		Count(&stats.UniqueDownloaders).Error
	if err != nil {
		return stats, errutil.Internal("failed to count unique downloaders", err)
	}

	return stats, nil
}

// ScanNewAccountBurst checks whether the resource's last-24h downloads are
// dominated by freshly registered accounts.
func (s *Service) ScanNewAccountBurst(ctx context.Context, resourceID string) error {
	var samples []downloadSample
	err := s.db.WithContext(ctx).
		Where("resource_id = ? AND created_at >= ?", resourceID, time.Now().Add(-24*time.Hour)).
		Find(&samples).Error
	if err != nil {
		return errutil.Internal("failed to load recent downloads", err)
	}
	if len(samples) == 0 {
		return nil
	}

	ids := make([]string, 0, len(samples))
	seen := map[string]struct{}{}
	for _, d := range samples {
		if _, ok := seen[d.DownloaderID]; !ok {
			seen[d.DownloaderID] = struct{}{}
			ids = append(ids, d.DownloaderID)
		}
	}
	users, err := s.members.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	now := time.Now()
	newAccounts := map[string]bool{}
	for _, u := range users {
		newAccounts[u.ID] = u.IsNewAccount(now)
	}

	stats := BurstStats{Total: int64(len(samples))}
	for _, d := range samples {
		if newAccounts[d.DownloaderID] {
			stats.NewAccountCount++
		}
	}

	if !DetectNewAccountBurst(stats) {
		return nil
	}

	data, _ := json.Marshal(stats)
	return s.raiseAlert(ctx, resourceID, TriggerNewAccountBurst, data)
}

// ScanClusters groups accounts that downloaded from the same IPs over the
// last 30 days and scores each group.
func (s *Service) ScanClusters(ctx context.Context) error {
	var samples []downloadSample
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", time.Now().Add(-30*24*time.Hour)).
		Find(&samples).Error
	if err != nil {
		return errutil.Internal("failed to load download history", err)
	}

	byIP := map[string]map[string]struct{}{}
	byUser := map[string]*AccountProfile{}
	for _, d := range samples {
		if d.IPAddress != "" {
			if byIP[d.IPAddress] == nil {
				byIP[d.IPAddress] = map[string]struct{}{}
			}
			byIP[d.IPAddress][d.DownloaderID] = struct{}{}
		}
		p := byUser[d.DownloaderID]
		if p == nil {
			p = &AccountProfile{UserID: d.DownloaderID}
			byUser[d.DownloaderID] = p
		}
		p.DownloadIPs = append(p.DownloadIPs, d.IPAddress)
		p.ResourceIDs = append(p.ResourceIDs, d.ResourceID)
	}

	scanned := map[string]struct{}{}
	for ip, users := range byIP {
		if len(users) < 2 {
			continue
		}
		group := make([]string, 0, len(users))
		for id := range users {
			group = append(group, id)
		}
		key := groupKey(group)
		if _, done := scanned[key]; done {
			continue
		}
		scanned[key] = struct{}{}

		if err := s.scoreGroup(ctx, ip, group, byUser); err != nil {
			zap.L().Warn("cluster scoring failed",
				zap.String("ip", ip),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) scoreGroup(ctx context.Context, ip string, group []string, profiles map[string]*AccountProfile) error {
	users, err := s.members.FindByIDs(ctx, group)
	if err != nil {
		return err
	}

	accounts := make([]AccountProfile, 0, len(users))
	for _, u := range users {
		p := profiles[u.ID]
		if p == nil {
			continue
		}
		p.RegisteredAt = u.CreatedAt
		accounts = append(accounts, *p)
	}

	result := DetectCluster(accounts)
	if !result.IsCluster {
		return nil
	}

	data, _ := json.Marshal(map[string]any{
		"ip":     ip,
		"users":  group,
		"result": result,
	})
	// Cluster alerts key off the shared IP instead of a resource.
	return s.raiseAlert(ctx, "ip:"+ip, TriggerAccountCluster, data)
}

func groupKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	key := ""
	for _, id := range sorted {
		key += id + ","
	}
	return key
}

// raiseAlert appends a pending alert unless one with the same resource and
// trigger is already awaiting review.
func (s *Service) raiseAlert(ctx context.Context, resourceID string, trigger TriggerType, data []byte) error {
	existing, err := s.alerts.FindOne(ctx, RiskAlert{
		ResourceID:  resourceID,
		TriggerType: trigger,
		Status:      AlertPending,
	})
	if err != nil {
		return errutil.Internal("failed to check pending alerts", err)
	}
	if existing != nil {
		return nil
	}

	alert := RiskAlert{
		ID:          s.node.Generate().String(),
		ResourceID:  resourceID,
		TriggerType: trigger,
		TriggerData: datatypes.JSON(data),
		Status:      AlertPending,
		CreatedAt:   time.Now(),
	}
	if err := s.alerts.Create(ctx, &alert); err != nil {
		return errutil.Internal("failed to create risk alert", err)
	}

	zap.L().Info("risk alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("resource_id", resourceID),
		zap.String("trigger_type", string(trigger)),
	)
	return nil
}

// RaiseSelfDownloadAlert records a self-download attempt for review.
func (s *Service) RaiseSelfDownloadAlert(ctx context.Context, resourceID, userID string) error {
	data, _ := json.Marshal(map[string]string{"userId": userID})
	return s.raiseAlert(ctx, resourceID, TriggerSelfDownload, data)
}

func (s *Service) ListAlerts(ctx context.Context, status AlertStatus, page, pageSize int) ([]RiskAlert, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := RiskAlert{Status: status}
	total, err := s.alerts.Count(ctx, filter)
	if err != nil {
		return nil, 0, errutil.Internal("failed to count alerts", err)
	}
	rows, err := s.alerts.Find(ctx, filter,
		option.WithSortBy{SortBy: "created_at", OrderBy: "desc", Allow: []string{"created_at"}},
		option.WithLimit(pageSize),
		option.WithOffset((page-1)*pageSize),
	)
	if err != nil {
		return nil, 0, errutil.Internal("failed to list alerts", err)
	}
	return rows, total, nil
}

// ReviewAlert moves a pending alert to its terminal state. The transition
// happens at most once.
func (s *Service) ReviewAlert(ctx context.Context, alertID, reviewerID string, approve bool, notes string) (*RiskAlert, error) {
	var reviewed *RiskAlert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alerts := s.alerts.WithTrx(tx)

		alert, err := alerts.FindOne(ctx, RiskAlert{ID: alertID}, option.WithLockingUpdate())
		if err != nil {
			return errutil.Internal("failed to load alert", err)
		}
		if alert == nil {
			return errutil.NotFound("ALERT_NOT_FOUND", "risk alert does not exist")
		}
		if alert.Status != AlertPending {
			return errutil.Conflict("ALERT_REVIEWED", "risk alert has already been reviewed")
		}

		now := time.Now()
		alert.Status = AlertRejected
		if approve {
			alert.Status = AlertApproved
		}
		alert.ReviewedBy = reviewerID
		alert.ReviewNotes = notes
		alert.ReviewedAt = &now

		if err := alerts.Update(ctx, alert); err != nil {
			return errutil.Internal("failed to update alert", err)
		}
		reviewed = alert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}
