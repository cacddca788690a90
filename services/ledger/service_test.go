package ledger

import (
	"context"
	"testing"

	"designhub-points/pkg/repository"
	"designhub-points/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.NewTestDB(t, &Account{}, &PointsChange{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewStore(StoreParams{
		DB:       db,
		Accounts: repository.ProvideStore[Account](db),
		Changes:  repository.ProvideStore[PointsChange](db),
		Node:     node,
	})
}

func apply(t *testing.T, s *Store, e Entry) *Account {
	t.Helper()
	var acct *Account
	err := s.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		var applyErr error
		acct, applyErr = s.Apply(context.Background(), tx, e)
		return applyErr
	})
	require.NoError(t, err)
	return acct
}

func TestApplyCreatesAccountAndAppendsChange(t *testing.T) {
	s := newTestStore(t)

	acct := apply(t, s, Entry{
		UserID:     "u1",
		Delta:      50,
		ChangeType: ChangeEarn,
		Source:     SourceWorkDownloaded,
		SourceID:   "r1",
	})
	require.EqualValues(t, 50, acct.Balance)
	require.EqualValues(t, 50, acct.TotalEarned)

	rows, total, err := s.ListChanges(context.Background(), "u1", "", 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 50, rows[0].Delta)
	require.EqualValues(t, 50, rows[0].BalanceAfter)
	require.Equal(t, ChangeEarn, rows[0].ChangeType)
}

func TestApplyRejectsNegativeBalance(t *testing.T) {
	s := newTestStore(t)

	apply(t, s, Entry{UserID: "u1", Delta: 30, ChangeType: ChangeEarn, Source: SourceWorkDownloaded})

	err := s.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		_, err := s.Apply(context.Background(), tx, Entry{
			UserID:     "u1",
			Delta:      -50,
			ChangeType: ChangeConsume,
			Source:     SourceDownloadResource,
		})
		return err
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient balance: have 30, need 50")

	// failed debit leaves the ledger untouched
	acct, err := s.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 30, acct.Balance)

	_, total, err := s.ListChanges(context.Background(), "u1", "", 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestBalanceMatchesSumOfDeltas(t *testing.T) {
	s := newTestStore(t)

	entries := []Entry{
		{UserID: "u1", Delta: 100, ChangeType: ChangeEarn, Source: SourceWorkDownloaded},
		{UserID: "u1", Delta: -40, ChangeType: ChangeConsume, Source: SourceDownloadResource},
		{UserID: "u1", Delta: 10, ChangeType: ChangeAdminAdd, Source: SourceAdminAdjustment},
		{UserID: "u1", Delta: -30, ChangeType: ChangeExchange, Source: SourcePointsExchange},
		{UserID: "u1", Delta: 30, ChangeType: ChangeRefund, Source: SourceExchangeRefund},
	}
	for _, e := range entries {
		apply(t, s, e)
	}

	acct, err := s.GetAccount(context.Background(), "u1")
	require.NoError(t, err)

	rows, _, err := s.ListChanges(context.Background(), "u1", "", 1, 100)
	require.NoError(t, err)
	var sum int64
	for _, r := range rows {
		sum += r.Delta
	}
	require.Equal(t, sum, acct.Balance)
	require.EqualValues(t, 70, acct.Balance)
}

func TestRefundDoesNotGrowLifetimeTotal(t *testing.T) {
	s := newTestStore(t)

	apply(t, s, Entry{UserID: "u1", Delta: 100, ChangeType: ChangeEarn, Source: SourceWorkDownloaded})
	apply(t, s, Entry{UserID: "u1", Delta: -60, ChangeType: ChangeExchange, Source: SourcePointsExchange})
	acct := apply(t, s, Entry{UserID: "u1", Delta: 60, ChangeType: ChangeRefund, Source: SourceExchangeRefund})

	require.EqualValues(t, 100, acct.Balance)
	require.EqualValues(t, 100, acct.TotalEarned)
}

func TestGetSummary(t *testing.T) {
	s := newTestStore(t)

	apply(t, s, Entry{UserID: "u1", Delta: 100, ChangeType: ChangeEarn, Source: SourceWorkDownloaded})
	apply(t, s, Entry{UserID: "u1", Delta: -25, ChangeType: ChangeConsume, Source: SourceDownloadResource})
	apply(t, s, Entry{UserID: "u1", Delta: -15, ChangeType: ChangeExchange, Source: SourcePointsExchange})

	summary, err := s.GetSummary(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 60, summary.Balance)
	require.EqualValues(t, 100, summary.TotalEarned)
	require.EqualValues(t, 40, summary.TotalConsumed)
}

func TestGetAccountReturnsZeroForUnknownUser(t *testing.T) {
	s := newTestStore(t)

	acct, err := s.GetAccount(context.Background(), "ghost")
	require.NoError(t, err)
	require.EqualValues(t, 0, acct.Balance)
	require.EqualValues(t, 0, acct.TotalEarned)
}

func TestApplyOrderedAppliesAllEntries(t *testing.T) {
	s := newTestStore(t)

	apply(t, s, Entry{UserID: "b", Delta: 100, ChangeType: ChangeEarn, Source: SourceWorkDownloaded})

	err := s.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return s.ApplyOrdered(context.Background(), tx, []Entry{
			{UserID: "b", Delta: -20, ChangeType: ChangeConsume, Source: SourceDownloadResource},
			{UserID: "a", Delta: 4, ChangeType: ChangeEarn, Source: SourceWorkDownloaded},
		})
	})
	require.NoError(t, err)

	b, err := s.GetAccount(context.Background(), "b")
	require.NoError(t, err)
	require.EqualValues(t, 80, b.Balance)

	a, err := s.GetAccount(context.Background(), "a")
	require.NoError(t, err)
	require.EqualValues(t, 4, a.Balance)
}

func TestApplyOrderedAbortsAtomically(t *testing.T) {
	s := newTestStore(t)

	err := s.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return s.ApplyOrdered(context.Background(), tx, []Entry{
			{UserID: "a", Delta: 10, ChangeType: ChangeEarn, Source: SourceWorkDownloaded},
			{UserID: "b", Delta: -5, ChangeType: ChangeConsume, Source: SourceDownloadResource},
		})
	})
	require.Error(t, err)

	a, err := s.GetAccount(context.Background(), "a")
	require.NoError(t, err)
	require.EqualValues(t, 0, a.Balance)
}

func TestListChangesFiltersByType(t *testing.T) {
	s := newTestStore(t)

	apply(t, s, Entry{UserID: "u1", Delta: 10, ChangeType: ChangeEarn, Source: SourceWorkDownloaded})
	apply(t, s, Entry{UserID: "u1", Delta: -5, ChangeType: ChangeConsume, Source: SourceDownloadResource})
	apply(t, s, Entry{UserID: "u1", Delta: 10, ChangeType: ChangeEarn, Source: SourceWorkDownloaded})

	rows, total, err := s.ListChanges(context.Background(), "u1", ChangeEarn, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	for _, r := range rows {
		require.Equal(t, ChangeEarn, r.ChangeType)
	}
}
