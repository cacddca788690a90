package adjustment

import "time"

// AdjustmentType is the administrator-facing operation kind.
type AdjustmentType string

const (
	AdjustAdd       AdjustmentType = "add"
	AdjustDeduct    AdjustmentType = "deduct"
	AdjustGift      AdjustmentType = "gift"
	AdjustBatchGift AdjustmentType = "batch_gift"
)

func (t AdjustmentType) valid() bool {
	switch t {
	case AdjustAdd, AdjustDeduct, AdjustGift, AdjustBatchGift:
		return true
	}
	return false
}

// AdjustmentLog records one admin balance change. The row is written once,
// then mutated at most once to set the revocation fields.
type AdjustmentLog struct {
	ID             string         `gorm:"column:id;primaryKey"`
	AdminID        string         `gorm:"column:admin_id;index"`
	TargetUserID   string         `gorm:"column:target_user_id;index"`
	AdjustmentType AdjustmentType `gorm:"column:adjustment_type"`
	PointsChange   int64          `gorm:"column:points_change"`
	PointsBefore   int64          `gorm:"column:points_before"`
	PointsAfter    int64          `gorm:"column:points_after"`
	Reason         string         `gorm:"column:reason"`
	IsRevoked      bool           `gorm:"column:is_revoked"`
	RevokedAt      *time.Time     `gorm:"column:revoked_at"`
	RevokedBy      string         `gorm:"column:revoked_by"`
	RevokeReason   string         `gorm:"column:revoke_reason"`
	CreatedAt      time.Time      `gorm:"column:created_at;index"`
}

func (AdjustmentLog) TableName() string { return "adjustment_logs" }

// BatchFailure names one member of a batch gift that could not be
// credited.
type BatchFailure struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	SuccessCount int            `json:"successCount"`
	FailedCount  int            `json:"failedCount"`
	Failures     []BatchFailure `json:"failures"`
}
