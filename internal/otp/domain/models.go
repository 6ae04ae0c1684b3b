package domain

import "time"

// Code is the pending one-time code of an email address. Only the hash is
// stored; a new issue replaces the previous code.
type Code struct {
	TenantID  string    `gorm:"primaryKey;type:varchar(64)"`
	AppID     string    `gorm:"primaryKey;type:varchar(64)"`
	Email     string    `gorm:"primaryKey;type:varchar(320)"`
	CodeHash  string    `gorm:"type:text;not null"`
	Attempts  int       `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Code) TableName() string { return "otp_codes" }

type IssueResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}
