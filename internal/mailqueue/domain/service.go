package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ticketflow/internal/changefeed"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Enqueue(ctx context.Context, key tenant.Key, msg Message) (Item, error)
	// EnqueueTx writes the item and its change event on tx.
	EnqueueTx(ctx context.Context, tx *gorm.DB, key tenant.Key, msg Message) (Item, error)
	HandleCreated(ctx context.Context, evt changefeed.ChangeEvent) error
	ListErrored(ctx context.Context, key tenant.Key, page pagination.Pagination) (ListResponse, error)
}

type ListResponse struct {
	pagination.PageInfo
	Items []Item `json:"items"`
}

var (
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrInvalidSubject   = errors.New("invalid_subject")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
