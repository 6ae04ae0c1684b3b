package domain

import "time"

// UserProfile is the tenant-scoped profile of an app user.
type UserProfile struct {
	TenantID    string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	AppID       string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	UID         string    `gorm:"column:uid;primaryKey;type:varchar(128)" json:"uid"`
	Email       string    `gorm:"type:varchar(320)" json:"email"`
	DisplayName string    `gorm:"type:text" json:"displayName,omitempty"`
	Phone       string    `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (UserProfile) TableName() string { return "user_profiles" }

type Source string

const (
	SourceProfile  Source = "profile"
	SourceIdentity Source = "identity_provider"
)

// Identity is a resolved recipient.
type Identity struct {
	UID    string
	Email  string
	Name   string
	Source Source
}
