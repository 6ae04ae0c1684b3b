package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/tenant"
)

type SaveRequest struct {
	BookingID        string `json:"-"`
	CustomerID       string `json:"id"`
	CustomerName     string `json:"customerName"`
	AssignedEmployee string `json:"assignedEmployee"`
	EngineerStatus   string `json:"engineerStatus"`
	AdminStatus      string `json:"adminStatus"`
}

type Service interface {
	// Save replaces the ticket document and records the change.
	Save(ctx context.Context, key tenant.Key, req SaveRequest) (Ticket, error)
	Get(ctx context.Context, key tenant.Key, bookingID string) (Ticket, error)
	Delete(ctx context.Context, key tenant.Key, bookingID string) error
}

var (
	ErrInvalidBookingID = errors.New("invalid_booking_id")
	ErrTicketNotFound   = errors.New("ticket_not_found")
)
