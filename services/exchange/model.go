package exchange

import (
	"time"

	"gorm.io/datatypes"
)

// ExchangeStatus lifecycle: pending → processing → success → refunded;
// failed and refunded are terminal. Success may still move to refunded as
// long as delivery has not completed.
type ExchangeStatus string

const (
	StatusPending    ExchangeStatus = "pending"
	StatusProcessing ExchangeStatus = "processing"
	StatusSuccess    ExchangeStatus = "success"
	StatusFailed     ExchangeStatus = "failed"
	StatusRefunded   ExchangeStatus = "refunded"
)

const (
	DeliveryNotShipped = 0
	DeliveryShipped    = 1
	DeliveryCompleted  = 2
)

// UnlimitedStock marks a product whose stock is never decremented or
// restored.
const UnlimitedStock = -1

const productActive = 1

type Product struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Name           string    `gorm:"column:name"`
	Description    string    `gorm:"column:description"`
	PointsRequired int64     `gorm:"column:points_required"`
	Stock          int64     `gorm:"column:stock"`
	Status         int       `gorm:"column:status"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Product) TableName() string { return "point_products" }

func (p Product) Active() bool { return p.Status == productActive }

type ExchangeRecord struct {
	ID             string         `gorm:"column:id;primaryKey"`
	UserID         string         `gorm:"column:user_id;index"`
	ProductID      string         `gorm:"column:product_id;index"`
	PointsCost     int64          `gorm:"column:points_cost"`
	Status         ExchangeStatus `gorm:"column:status"`
	DeliveryStatus int            `gorm:"column:delivery_status"`
	TrackingNumber string         `gorm:"column:tracking_number"`
	Address        datatypes.JSON `gorm:"column:address"`
	IPAddress      string         `gorm:"column:ip_address"`
	DeviceInfo     string         `gorm:"column:device_info"`
	RefundReason   string         `gorm:"column:refund_reason"`
	RefundedAt     *time.Time     `gorm:"column:refunded_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;index"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (ExchangeRecord) TableName() string { return "exchange_records" }

// ExchangeAuditLog traces every operator-visible action on a record.
type ExchangeAuditLog struct {
	ID         string         `gorm:"column:id;primaryKey"`
	RecordID   string         `gorm:"column:record_id;index"`
	Action     string         `gorm:"column:action"`
	OperatorID string         `gorm:"column:operator_id"`
	Detail     datatypes.JSON `gorm:"column:detail"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (ExchangeAuditLog) TableName() string { return "exchange_audit_logs" }

// AuditInfo is the request-scoped context embedded in each record.
type AuditInfo struct {
	IPAddress  string
	DeviceInfo string
}

func datatypesJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}
