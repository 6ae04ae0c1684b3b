package domain

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert replaces any pending code for the address.
	Upsert(ctx context.Context, db *gorm.DB, code *Code) error
	Find(ctx context.Context, db *gorm.DB, key tenant.Key, email string) (*Code, error)
	// ClaimAttempt counts one verification attempt against the code carrying
	// codeHash. It reports false once limit attempts have been counted.
	ClaimAttempt(ctx context.Context, db *gorm.DB, key tenant.Key, email, codeHash string, limit int) (bool, error)
	// Consume deletes the code only if it still carries codeHash.
	Consume(ctx context.Context, db *gorm.DB, key tenant.Key, email, codeHash string) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, key tenant.Key, email string) error
}
