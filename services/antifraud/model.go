package antifraud

import (
	"time"

	"gorm.io/datatypes"
)

// TriggerType names what tripped a risk alert.
type TriggerType string

const (
	TriggerHighFrequency   TriggerType = "high_frequency"
	TriggerAccountCluster  TriggerType = "account_cluster"
	TriggerNewAccountBurst TriggerType = "new_account_burst"
	TriggerSelfDownload    TriggerType = "self_download"
)

// AlertStatus moves pending → approved | rejected, exactly once.
type AlertStatus string

const (
	AlertPending  AlertStatus = "pending"
	AlertApproved AlertStatus = "approved"
	AlertRejected AlertStatus = "rejected"
)

type RiskAlert struct {
	ID          string         `gorm:"column:id;primaryKey"`
	ResourceID  string         `gorm:"column:resource_id;index"`
	TriggerType TriggerType    `gorm:"column:trigger_type"`
	TriggerData datatypes.JSON `gorm:"column:trigger_data"`
	Status      AlertStatus    `gorm:"column:status;index"`
	ReviewedBy  string         `gorm:"column:reviewed_by"`
	ReviewNotes string         `gorm:"column:review_notes"`
	ReviewedAt  *time.Time     `gorm:"column:reviewed_at"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (RiskAlert) TableName() string { return "risk_alerts" }
