package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/providers/email"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = ""
	StatusSent    Status = "SENT"
	StatusError   Status = "ERROR"
)

// Item is one outbound email. Status moves from pending to SENT or ERROR
// exactly once and is never reset by the service.
type Item struct {
	ID          snowflake.ID                          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantID    string                                `gorm:"type:varchar(64);not null;index:idx_mail_status,priority:1" json:"tenantId"`
	AppID       string                                `gorm:"type:varchar(64);not null;index:idx_mail_status,priority:2" json:"appId"`
	To          string                                `gorm:"column:recipient;type:varchar(320);not null" json:"to"`
	Subject     string                                `gorm:"type:text" json:"subject"`
	HTML        string                                `gorm:"column:html;type:text" json:"html"`
	Attachments datatypes.JSONSlice[email.Attachment] `json:"attachments,omitempty"`
	Status      Status                                `gorm:"type:varchar(16);not null;default:'';index:idx_mail_status,priority:3" json:"status"`
	Error       string                                `gorm:"type:text" json:"error,omitempty"`
	AttemptedAt *time.Time                            `json:"-"`
	DeliveredAt *time.Time                            `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time                             `gorm:"not null" json:"createdAt"`
}

func (Item) TableName() string { return "mail_queue" }

type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []email.Attachment
}

// Snapshot is the change-feed view of an item. Bodies and attachments stay
// in the table.
type Snapshot struct {
	ID      snowflake.ID `json:"id"`
	To      string       `json:"to"`
	Subject string       `json:"subject"`
	Status  Status       `json:"status"`
}

func (i Item) Snapshot() Snapshot {
	return Snapshot{ID: i.ID, To: i.To, Subject: i.Subject, Status: i.Status}
}
