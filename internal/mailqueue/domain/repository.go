package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, key tenant.Key, id snowflake.ID) (*Item, error)
	// MarkAttempted claims the single delivery attempt for a pending item.
	MarkAttempted(ctx context.Context, db *gorm.DB, key tenant.Key, id snowflake.ID, at time.Time) (bool, error)
	Finish(ctx context.Context, db *gorm.DB, key tenant.Key, id snowflake.ID, status Status, errMsg string, at time.Time) error
	// ListUndelivered pages ERROR items and claimed items that never got a
	// status, provided their claim is older than attemptedBefore.
	ListUndelivered(ctx context.Context, db *gorm.DB, key tenant.Key, attemptedBefore time.Time, cursor *pagination.Cursor, limit int) ([]Item, error)
}
