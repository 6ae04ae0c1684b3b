package changefeed

import (
	"context"
	"fmt"
	"reflect"

	"github.com/bwmarrin/snowflake"
	"github.com/goccy/go-json"
	"github.com/smallbiznis/ticketflow/internal/clock"
	"github.com/smallbiznis/ticketflow/internal/tenant"
	"github.com/smallbiznis/ticketflow/pkg/telemetry/correlation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends outbox rows. Callers pass the transaction of the
// document write so the change and the document commit together.
type Recorder struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewRecorder(genID *snowflake.Node, clk clock.Clock) *Recorder {
	return &Recorder{genID: genID, clock: clk}
}

// Record stores a change for collection/documentID. A nil before marks a
// creation, a nil after marks a deletion.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, key tenant.Key, collection, documentID string, before, after any) (ChangeEvent, error) {
	if err := key.Validate(); err != nil {
		return ChangeEvent{}, err
	}
	if collection == "" || documentID == "" {
		return ChangeEvent{}, ErrInvalidEvent
	}

	beforeDoc, err := marshalSnapshot(before)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("encode before snapshot: %w", err)
	}
	afterDoc, err := marshalSnapshot(after)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("encode after snapshot: %w", err)
	}
	if beforeDoc == nil && afterDoc == nil {
		return ChangeEvent{}, ErrInvalidEvent
	}

	row := Change{
		ID:            r.genID.Generate(),
		TenantID:      key.TenantID,
		AppID:         key.AppID,
		Collection:    collection,
		DocumentID:    documentID,
		BeforeDoc:     beforeDoc,
		AfterDoc:      afterDoc,
		CorrelationID: correlation.ExtractCorrelationID(ctx),
		CreatedAt:     r.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return ChangeEvent{}, fmt.Errorf("record change: %w", err)
	}
	return row.toEvent(), nil
}

func marshalSnapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
