// Package changefeed turns document writes into an at-least-once stream of
// before/after change events.
//
// Writers call Recorder.Record inside the same database transaction as the
// document write. The Relay polls unpublished rows and publishes them onto a
// watermill topic named after the collection; the Router delivers each
// message to every Handler registered for that collection.
package changefeed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goccy/go-json"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"gorm.io/datatypes"
)

const (
	CollectionTickets             = "tickets"
	CollectionPaymentTransactions = "payment_transactions"
	CollectionMail                = "mail"
)

var (
	ErrInvalidEvent = errors.New("invalid_change_event")
	ErrNoSnapshot   = errors.New("snapshot_absent")
)

// Change is the persisted outbox row.
type Change struct {
	ID            snowflake.ID   `gorm:"primaryKey;autoIncrement:false"`
	TenantID      string         `gorm:"type:varchar(64);not null"`
	AppID         string         `gorm:"type:varchar(64);not null"`
	Collection    string         `gorm:"type:varchar(64);not null"`
	DocumentID    string         `gorm:"type:varchar(128);not null"`
	BeforeDoc     datatypes.JSON `gorm:"column:before_doc"`
	AfterDoc      datatypes.JSON `gorm:"column:after_doc"`
	CorrelationID string         `gorm:"type:varchar(64)"`
	CreatedAt     time.Time      `gorm:"not null"`
	PublishedAt   *time.Time     `gorm:"index"`
}

func (Change) TableName() string { return "document_changes" }

// ChangeEvent is what handlers receive. Before is absent on creation and
// After is absent on deletion.
type ChangeEvent struct {
	ID         string          `json:"id"`
	Key        tenant.Key      `json:"key"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"documentId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`

	// CorrelationID is the id of the request that wrote the document.
	CorrelationID string `json:"correlationId,omitempty"`
}

func (e ChangeEvent) HasBefore() bool { return hasSnapshot(e.Before) }

func (e ChangeEvent) HasAfter() bool { return hasSnapshot(e.After) }

// Path renders the logical document path of the changed document.
func (e ChangeEvent) Path() string {
	return e.Key.Path(e.Collection, e.DocumentID)
}

// DecodeBefore unmarshals the before snapshot, returning ErrNoSnapshot when absent.
func (e ChangeEvent) DecodeBefore(v any) error {
	return decodeSnapshot(e.Before, v)
}

// DecodeAfter unmarshals the after snapshot, returning ErrNoSnapshot when absent.
func (e ChangeEvent) DecodeAfter(v any) error {
	return decodeSnapshot(e.After, v)
}

func hasSnapshot(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeSnapshot(raw json.RawMessage, v any) error {
	if !hasSnapshot(raw) {
		return ErrNoSnapshot
	}
	return json.Unmarshal(raw, v)
}

func (c Change) toEvent() ChangeEvent {
	return ChangeEvent{
		ID:         c.ID.String(),
		Key:        tenant.Key{TenantID: c.TenantID, AppID: c.AppID},
		Collection: c.Collection,
		DocumentID: c.DocumentID,
		Before:     json.RawMessage(c.BeforeDoc),
		After:      json.RawMessage(c.AfterDoc),
		CreatedAt:  c.CreatedAt,

		CorrelationID: c.CorrelationID,
	}
}

// Handler consumes change events for one collection.
type Handler struct {
	Name       string
	Collection string
	Handle     func(ctx context.Context, evt ChangeEvent) error
}
