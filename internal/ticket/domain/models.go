package domain

import (
	"strings"
	"time"
)

// Ticket is a service booking. CustomerID is serialized as "id" to match the
// snapshots emitted by the booking clients.
type Ticket struct {
	TenantID         string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	AppID            string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	BookingID        string    `gorm:"primaryKey;type:varchar(128)" json:"bookingId"`
	CustomerID       string    `gorm:"type:varchar(128)" json:"id,omitempty"`
	CustomerName     string    `gorm:"type:text" json:"customerName,omitempty"`
	AssignedEmployee string    `gorm:"type:varchar(128)" json:"assignedEmployee,omitempty"`
	EngineerStatus   string    `gorm:"type:varchar(64)" json:"engineerStatus,omitempty"`
	AdminStatus      string    `gorm:"type:varchar(64)" json:"adminStatus,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (Ticket) TableName() string { return "tickets" }

// Engineer returns the assigned employee identifier used for token lookup.
func (t Ticket) Engineer() string {
	return strings.TrimSpace(t.AssignedEmployee)
}

// DisplayStatus prefers the engineer status as the more specific signal.
func (t Ticket) DisplayStatus() string {
	if t.EngineerStatus != "" {
		return t.EngineerStatus
	}
	if t.AdminStatus != "" {
		return t.AdminStatus
	}
	return "Updated"
}
