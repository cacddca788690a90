package exchange

import (
	"context"
	"testing"
	"time"

	"designhub-points/pkg/repository"
	"designhub-points/services/ledger"
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

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string) {}

type fixture struct {
	svc   *Service
	store *ledger.Store
	db    *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t,
		&Product{}, &ExchangeRecord{}, &ExchangeAuditLog{},
		&ledger.Account{}, &ledger.PointsChange{},
		&member.User{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := ledger.NewStore(ledger.StoreParams{
		DB:       db,
		Accounts: repository.ProvideStore[ledger.Account](db),
		Changes:  repository.ProvideStore[ledger.PointsChange](db),
		Node:     node,
	})
	members := member.NewService(member.ServiceParams{
		Users: repository.ProvideStore[member.User](db),
	})

	svc := NewService(ServiceParams{
		DB:       db,
		Products: repository.ProvideStore[Product](db),
		Records:  repository.ProvideStore[ExchangeRecord](db),
		Audits:   repository.ProvideStore[ExchangeAuditLog](db),
		Ledger:   store,
		Members:  members,
		Notifier: noopNotifier{},
		Node:     node,
	})

	return &fixture{svc: svc, store: store, db: db}
}

func (f *fixture) addUser(t *testing.T, id string, balance int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&member.User{
		ID:        id,
		Status:    member.StatusActive,
		CreatedAt: time.Now(),
	}).Error)
	if balance > 0 {
		err := f.store.WithTransaction(context.Background(), func(tx *gorm.DB) error {
			_, err := f.store.Apply(context.Background(), tx, ledger.Entry{
				UserID:     id,
				Delta:      balance,
				ChangeType: ledger.ChangeEarn,
				Source:     ledger.SourceWorkDownloaded,
			})
			return err
		})
		require.NoError(t, err)
	}
}

func (f *fixture) addProduct(t *testing.T, id string, cost, stock int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&Product{
		ID:             id,
		Name:           "product " + id,
		PointsRequired: cost,
		Stock:          stock,
		Status:         productActive,
	}).Error)
}

func (f *fixture) stock(t *testing.T, productID string) int64 {
	t.Helper()
	var p Product
	require.NoError(t, f.db.First(&p, "id = ?", productID).Error)
	return p.Stock
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	acct, err := f.store.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	return acct.Balance
}

func TestExchangeDebitsRecordAndStock(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	f.addProduct(t, "p1", 60, 5)

	result, err := f.svc.Exchange(context.Background(), "u1", "p1", AuditInfo{IPAddress: "1.2.3.4"}, nil)
	require.NoError(t, err)
	require.EqualValues(t, 40, result.Balance)

	require.EqualValues(t, 40, f.balance(t, "u1"))
	require.EqualValues(t, 4, f.stock(t, "p1"))

	record, err := f.svc.GetRecord(context.Background(), result.ExchangeID)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, record.Status)
	require.EqualValues(t, 60, record.PointsCost)
	require.Equal(t, "1.2.3.4", record.IPAddress)

	logs, total, err := f.svc.ListAuditLogs(context.Background(), result.ExchangeID, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "exchange", logs[0].Action)
}

func TestExchangeInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 10)
	f.addProduct(t, "p1", 60, 5)

	_, err := f.svc.Exchange(context.Background(), "u1", "p1", AuditInfo{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insufficient balance")

	// nothing moved
	require.EqualValues(t, 10, f.balance(t, "u1"))
	require.EqualValues(t, 5, f.stock(t, "p1"))
	var count int64
	require.NoError(t, f.db.Model(&ExchangeRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestExchangeOutOfStock(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	f.addProduct(t, "p1", 10, 0)

	_, err := f.svc.Exchange(context.Background(), "u1", "p1", AuditInfo{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "OUT_OF_STOCK")
}

func TestExchangeInactiveProduct(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	require.NoError(t, f.db.Create(&Product{ID: "p1", PointsRequired: 10, Stock: 5, Status: 0}).Error)

	_, err := f.svc.Exchange(context.Background(), "u1", "p1", AuditInfo{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PRODUCT_UNAVAILABLE")
}

func TestExchangeUnlimitedStockNeverDecrements(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	f.addProduct(t, "p1", 10, UnlimitedStock)

	result, err := f.svc.Exchange(context.Background(), "u1", "p1", AuditInfo{}, nil)
	require.NoError(t, err)
	require.EqualValues(t, UnlimitedStock, f.stock(t, "p1"))

	_, err = f.svc.Rollback(context.Background(), result.ExchangeID, "admin1", "test refund")
	require.NoError(t, err)
	require.EqualValues(t, UnlimitedStock, f.stock(t, "p1"))
}

func TestRollbackRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	f.addProduct(t, "p1", 60, 5)
	ctx := context.Background()

	result, err := f.svc.Exchange(ctx, "u1", "p1", AuditInfo{}, nil)
	require.NoError(t, err)

	record, err := f.svc.Rollback(ctx, result.ExchangeID, "admin1", "user request")
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, record.Status)
	require.NotNil(t, record.RefundedAt)

	// balance and stock restored exactly
	require.EqualValues(t, 100, f.balance(t, "u1"))
	require.EqualValues(t, 5, f.stock(t, "p1"))

	// second rollback fails
	_, err = f.svc.Rollback(ctx, result.ExchangeID, "admin1", "again")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already been refunded")
}

func TestRollbackAfterCompletedDeliveryFails(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	f.addProduct(t, "p1", 60, 5)
	ctx := context.Background()

	result, err := f.svc.Exchange(ctx, "u1", "p1", AuditInfo{}, nil)
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, result.ExchangeID, "admin1", "TRACK123", DeliveryShipped)
	require.NoError(t, err)
	_, err = f.svc.Ship(ctx, result.ExchangeID, "admin1", "", DeliveryCompleted)
	require.NoError(t, err)

	_, err = f.svc.Rollback(ctx, result.ExchangeID, "admin1", "too late")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DELIVERY_COMPLETED")
}

func TestShipMovesForwardOnly(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", 100)
	f.addProduct(t, "p1", 10, 5)
	ctx := context.Background()

	result, err := f.svc.Exchange(ctx, "u1", "p1", AuditInfo{}, nil)
	require.NoError(t, err)

	record, err := f.svc.Ship(ctx, result.ExchangeID, "admin1", "TRACK123", DeliveryShipped)
	require.NoError(t, err)
	require.Equal(t, DeliveryShipped, record.DeliveryStatus)
	require.Equal(t, "TRACK123", record.TrackingNumber)

	_, err = f.svc.Ship(ctx, result.ExchangeID, "admin1", "", DeliveryShipped)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot move backwards")
}
