package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"designhub-points/pkg/db/option"
	"designhub-points/pkg/errutil"
	"designhub-points/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("ledger",
	fx.Provide(repository.ProvideStore[Account]),
	fx.Provide(repository.ProvideStore[PointsChange]),
	fx.Provide(NewStore),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

type StoreParams struct {
	fx.In
	DB       *gorm.DB
	Accounts repository.Repository[Account]
	Changes  repository.Repository[PointsChange]
	Node     *snowflake.Node
}

// Store owns every balance mutation. Other services describe what should
// happen as Entry values and hand them to Apply inside a transaction; no
// other code path writes point_accounts.
type Store struct {
	db       *gorm.DB
	accounts repository.Repository[Account]
	changes  repository.Repository[PointsChange]
	node     *snowflake.Node
}

func NewStore(p StoreParams) *Store {
	return &Store{
		db:       p.DB,
		accounts: p.Accounts,
		changes:  p.Changes,
		node:     p.Node,
	}
}

// WithTransaction runs fn inside one storage transaction. Every logical
// operation of the engine (download, adjustment, exchange, rollback) wraps
// its mutations in exactly one of these.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Apply locks the user's account row, applies the entry's delta, and
// appends the matching PointsChange in the same transaction. The resulting
// balance is never allowed to go negative.
func (s *Store) Apply(ctx context.Context, tx *gorm.DB, e Entry) (*Account, error) {
	accounts := s.accounts.WithTrx(tx)

	acct, err := accounts.FindOne(ctx, Account{UserID: e.UserID}, option.WithLockingUpdate())
	if err != nil {
		return nil, errutil.Internal("failed to load account", err)
	}
	if acct == nil {
		acct = &Account{UserID: e.UserID, CreatedAt: time.Now()}
		if err := accounts.Create(ctx, acct); err != nil {
			return nil, errutil.Internal("failed to create account", err)
		}
	}

	newBalance := acct.Balance + e.Delta
	if newBalance < 0 {
		return nil, errutil.BadRequest("INSUFFICIENT_BALANCE",
			fmt.Sprintf("insufficient balance: have %d, need %d", acct.Balance, -e.Delta))
	}

	acct.Balance = newBalance
	acct.TotalEarned += e.totalEarnedDelta()
	if acct.TotalEarned < 0 {
		acct.TotalEarned = 0
	}
	acct.UpdatedAt = time.Now()
	if err := accounts.Update(ctx, acct); err != nil {
		return nil, errutil.Internal("failed to update account", err)
	}

	change := PointsChange{
		ID:           s.node.Generate().String(),
		UserID:       e.UserID,
		Delta:        e.Delta,
		BalanceAfter: newBalance,
		ChangeType:   e.ChangeType,
		Source:       e.Source,
		SourceID:     e.SourceID,
		Description:  e.Description,
		CreatedAt:    time.Now(),
	}
	if err := s.changes.WithTrx(tx).Create(ctx, &change); err != nil {
		return nil, errutil.Internal("failed to append points change", err)
	}

	zap.L().Debug("ledger entry applied",
		zap.String("user_id", e.UserID),
		zap.Int64("delta", e.Delta),
		zap.String("change_type", string(e.ChangeType)),
		zap.Int64("balance_after", newBalance),
	)

	return acct, nil
}

// ApplyOrdered applies several entries in ascending user-id order so that
// concurrent operations touching the same pair of accounts lock rows in
// the same sequence.
func (s *Store) ApplyOrdered(ctx context.Context, tx *gorm.DB, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	for _, e := range sorted {
		if _, err := s.Apply(ctx, tx, e); err != nil {
			return err
		}
	}
	return nil
}

// GetAccount returns the account, or a zero-balance one when the user has
// no ledger activity yet.
func (s *Store) GetAccount(ctx context.Context, userID string) (*Account, error) {
	return s.getAccount(ctx, s.accounts, userID)
}

// GetAccountWith is GetAccount inside an open transaction.
func (s *Store) GetAccountWith(ctx context.Context, tx *gorm.DB, userID string) (*Account, error) {
	return s.getAccount(ctx, s.accounts.WithTrx(tx), userID)
}

func (s *Store) getAccount(ctx context.Context, accounts repository.Repository[Account], userID string) (*Account, error) {
	acct, err := accounts.FindOne(ctx, Account{UserID: userID})
	if err != nil {
		return nil, errutil.Internal("failed to load account", err)
	}
	if acct == nil {
		return &Account{UserID: userID}, nil
	}
	return acct, nil
}

// GetSummary aggregates lifetime earned and consumed totals from the
// ledger itself.
func (s *Store) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	acct, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	var consumed int64
	err = s.db.WithContext(ctx).
		Model(&PointsChange{}).
		Where("user_id = ? AND delta < 0", userID).
		Select("COALESCE(SUM(-delta), 0)").
		Scan(&consumed).Error
	if err != nil {
		return nil, errutil.Internal("failed to aggregate ledger", err)
	}

	return &Summary{
		Balance:       acct.Balance,
		TotalEarned:   acct.TotalEarned,
		TotalConsumed: consumed,
	}, nil
}

// ListChanges returns a page of the user's ledger, newest first, optionally
// filtered by change type.
func (s *Store) ListChanges(ctx context.Context, userID string, changeType ChangeType, page, pageSize int) ([]PointsChange, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := PointsChange{UserID: userID, ChangeType: changeType}

	total, err := s.changes.Count(ctx, filter)
	if err != nil {
		return nil, 0, errutil.Internal("failed to count points changes", err)
	}

	rows, err := s.changes.Find(ctx, filter,
		option.WithSortBy{SortBy: "created_at", OrderBy: "desc", Allow: []string{"created_at"}},
		option.WithLimit(pageSize),
		option.WithOffset((page-1)*pageSize),
	)
	if err != nil {
		return nil, 0, errutil.Internal("failed to list points changes", err)
	}
	return rows, total, nil
}
