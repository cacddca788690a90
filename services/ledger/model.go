package ledger

import "time"

// ChangeType tags every ledger entry with the flow that produced it.
type ChangeType string

const (
	ChangeEarn        ChangeType = "earn"
	ChangeConsume     ChangeType = "consume"
	ChangeAdminAdd    ChangeType = "admin_add"
	ChangeAdminDeduct ChangeType = "admin_deduct"
	ChangeAdminGift   ChangeType = "admin_gift"
	ChangeAdminRevoke ChangeType = "admin_revoke"
	ChangeExchange    ChangeType = "exchange"
	ChangeRefund      ChangeType = "refund"
)

// Source tags the origin subsystem of an entry.
type Source string

const (
	SourceWorkDownloaded   Source = "work_downloaded"
	SourceDownloadResource Source = "download_resource"
	SourcePointsExchange   Source = "points_exchange"
	SourceAdminAdjustment  Source = "admin_adjustment"
	SourceExchangeRefund   Source = "exchange_refund"
)

// Account holds the current spendable balance and the lifetime earned
// total. Balance is only ever written inside Store.Apply.
type Account struct {
	UserID      string    `gorm:"column:user_id;primaryKey"`
	Balance     int64     `gorm:"column:points_balance"`
	TotalEarned int64     `gorm:"column:points_total"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Account) TableName() string { return "point_accounts" }

// PointsChange is the append-only ledger record. Rows are never updated or
// deleted after creation.
type PointsChange struct {
	ID           string     `gorm:"column:id;primaryKey"`
	UserID       string     `gorm:"column:user_id;index"`
	Delta        int64      `gorm:"column:delta"`
	BalanceAfter int64      `gorm:"column:balance_after"`
	ChangeType   ChangeType `gorm:"column:change_type"`
	Source       Source     `gorm:"column:source"`
	SourceID     string     `gorm:"column:source_id"`
	Description  string     `gorm:"column:description"`
	CreatedAt    time.Time  `gorm:"column:created_at;index"`
}

func (PointsChange) TableName() string { return "points_changes" }

// Entry describes one balance mutation to apply. TotalDelta overrides how
// the lifetime earned total moves; zero means the default rule (positive
// deltas count, refunds and revocations do not).
type Entry struct {
	UserID      string
	Delta       int64
	ChangeType  ChangeType
	Source      Source
	SourceID    string
	Description string
	TotalDelta  int64
}

// totalEarnedDelta resolves how much the lifetime earned total moves.
// Refunds give back points the total already counted once; revocations set
// TotalDelta explicitly when they claw a grant back.
func (e Entry) totalEarnedDelta() int64 {
	if e.TotalDelta != 0 {
		return e.TotalDelta
	}
	if e.Delta <= 0 {
		return 0
	}
	if e.ChangeType == ChangeRefund || e.ChangeType == ChangeAdminRevoke {
		return 0
	}
	return e.Delta
}

// Summary aggregates a user's ledger.
type Summary struct {
	Balance       int64 `json:"balance"`
	TotalEarned   int64 `json:"totalEarned"`
	TotalConsumed int64 `json:"totalConsumed"`
}
