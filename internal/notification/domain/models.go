package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
)

// Payload is the platform-agnostic push content. Data always carries a
// "type" entry plus the identifiers the client needs to deep link.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

type Outcome string

const (
	OutcomeSent             Outcome = "sent"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeTransientFailure Outcome = "transient_failure"
	OutcomePermanentFailure Outcome = "permanent_failure"
)

type Result struct {
	Role    tokendomain.Role
	UserID  string
	Outcome Outcome
	Err     error
}

// Report aggregates a fan-out. A report is never an error by itself.
type Report struct {
	Results []Result
}

func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r Report) Sent() int { return r.Count(OutcomeSent) }

func (r Report) Failed() int {
	return r.Count(OutcomeTransientFailure) + r.Count(OutcomePermanentFailure)
}

// Banner is an append-only in-app notice. Seen is owned by the client.
type Banner struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantID   string       `gorm:"type:varchar(64);not null;index:idx_banner_customer,priority:1" json:"tenantId"`
	AppID      string       `gorm:"type:varchar(64);not null;index:idx_banner_customer,priority:2" json:"appId"`
	CustomerID string       `gorm:"type:varchar(128);not null;index:idx_banner_customer,priority:3" json:"customerId"`
	BookingID  string       `gorm:"type:varchar(128)" json:"bookingId,omitempty"`
	Title      string       `gorm:"type:text" json:"title"`
	Body       string       `gorm:"type:text" json:"body"`
	Type       string       `gorm:"type:varchar(64)" json:"type"`
	Seen       bool         `gorm:"not null;default:false" json:"seen"`
	Timestamp  time.Time    `gorm:"not null" json:"timestamp"`
}

func (Banner) TableName() string { return "notification_banners" }
