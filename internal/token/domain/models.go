package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
	RoleCustomer Role = "customer"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleEngineer:
		return RoleEngineer, nil
	case RoleCustomer:
		return RoleCustomer, nil
	default:
		return "", ErrInvalidRole
	}
}

// NotificationToken holds the single current device token of one user
// under one role. Last write wins.
type NotificationToken struct {
	TenantID  string    `gorm:"primaryKey;type:varchar(64)" json:"tenantId"`
	AppID     string    `gorm:"primaryKey;type:varchar(64)" json:"appId"`
	Role      Role      `gorm:"primaryKey;type:varchar(16)" json:"role"`
	UserID    string    `gorm:"primaryKey;type:varchar(128)" json:"userId"`
	Token     string    `gorm:"type:text" json:"token"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (NotificationToken) TableName() string { return "notification_tokens" }
