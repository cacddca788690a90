package member

import "time"

// User is a read-only projection of the account service's user table. This
// service never writes it; the columns here are the ones the points engine
// needs for permission checks and fraud signals.
type User struct {
	ID             string     `gorm:"column:id;primaryKey"`
	Username       string     `gorm:"column:username"`
	VipLevel       int        `gorm:"column:vip_level"`
	VipExpireAt    *time.Time `gorm:"column:vip_expire_at"`
	RegistrationIP string     `gorm:"column:registration_ip"`
	Status         int        `gorm:"column:status"`
	IsDeleted      bool       `gorm:"column:is_deleted"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (User) TableName() string { return "users" }

const StatusActive = 1

// newAccountAge is the window inside which an account counts as newly
// registered for burst detection.
const newAccountAge = 7 * 24 * time.Hour

// IsVIP reports whether the user's VIP grant is currently effective: a
// positive level with either no expiry or an expiry in the future.
func (u User) IsVIP(now time.Time) bool {
	if u.VipLevel <= 0 {
		return false
	}
	return u.VipExpireAt == nil || u.VipExpireAt.After(now)
}

func (u User) IsNewAccount(now time.Time) bool {
	return now.Sub(u.CreatedAt) < newAccountAge
}

func (u User) IsActive() bool {
	return u.Status == StatusActive && !u.IsDeleted
}
