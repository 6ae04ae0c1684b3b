package domain

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, bookingID string) (*Ticket, error)
	Upsert(ctx context.Context, db *gorm.DB, ticket *Ticket) error
	Delete(ctx context.Context, db *gorm.DB, key tenant.Key, bookingID string) error
}
