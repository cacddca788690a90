package download

import "time"

// PricingType matches the catalog's tier encoding.
type PricingType int

const (
	PricingFree    PricingType = 0
	PricingPaid    PricingType = 1
	PricingVIPOnly PricingType = 2
)

const (
	auditApproved  = 1
	resourceActive = 1
)

// Resource is a projection of the catalog table. The engine never writes
// it except for the denormalized download counter.
type Resource struct {
	ID            string      `gorm:"column:id;primaryKey"`
	UploaderID    string      `gorm:"column:uploader_id"`
	Title         string      `gorm:"column:title"`
	PricingType   PricingType `gorm:"column:pricing_type"`
	Price         int64       `gorm:"column:price"`
	FilePath      string      `gorm:"column:file_path"`
	AuditStatus   int         `gorm:"column:audit_status"`
	Status        int         `gorm:"column:status"`
	IsDeleted     bool        `gorm:"column:is_deleted"`
	DownloadCount int64       `gorm:"column:download_count"`
	CreatedAt     time.Time   `gorm:"column:created_at"`
}

func (Resource) TableName() string { return "resources" }

func (r Resource) Downloadable() bool {
	return !r.IsDeleted && r.AuditStatus == auditApproved && r.Status == resourceActive
}

// DownloadEvent records one completed download. Rows are immutable.
type DownloadEvent struct {
	ID              string    `gorm:"column:id;primaryKey"`
	DownloaderID    string    `gorm:"column:downloader_id;index"`
	ResourceID      string    `gorm:"column:resource_id;index"`
	UploaderID      string    `gorm:"column:uploader_id"`
	PointsCost      int64     `gorm:"column:points_cost"`
	EarningsAwarded bool      `gorm:"column:earnings_awarded"`
	InvalidReason   string    `gorm:"column:invalid_reason"`
	DownloaderType  string    `gorm:"column:downloader_type"`
	IPAddress       string    `gorm:"column:ip_address"`
	UserAgent       string    `gorm:"column:user_agent"`
	CreatedAt       time.Time `gorm:"column:created_at;index"`
}

func (DownloadEvent) TableName() string { return "download_events" }

const (
	downloaderNormal = "normal"
	downloaderVIP    = "vip"
)

// Permission is the decision for one user/resource pair.
type Permission struct {
	CanDownload bool   `json:"canDownload"`
	PointsCost  int64  `json:"pointsCost"`
	IsFree      bool   `json:"isFree"`
	IsVipFree   bool   `json:"isVipFree"`
	Reason      string `json:"reason,omitempty"`
}
