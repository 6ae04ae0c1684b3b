package changefeed

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/smallbiznis/ticketflow/pkg/telemetry/correlation"
)

const (
	metadataCollection = "collection"
	metadataTenantID   = "tenant_id"
	metadataAppID      = "app_id"
)

// encodeMessage wraps a change event into a watermill message keyed by the
// outbox row id, so redelivered rows keep their message UUID.
func encodeMessage(ctx context.Context, evt ChangeEvent) (*message.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode change %s: %w", evt.ID, err)
	}
	msg := message.NewMessage(evt.ID, payload)

	md := map[string]string{correlation.MetadataCorrelationID: evt.CorrelationID}
	correlation.InjectIntoMetadata(ctx, md)
	for k, v := range md {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(metadataCollection, evt.Collection)
	msg.Metadata.Set(metadataTenantID, evt.Key.TenantID)
	msg.Metadata.Set(metadataAppID, evt.Key.AppID)
	return msg, nil
}

func decodeMessage(msg *message.Message) (ChangeEvent, context.Context, error) {
	var evt ChangeEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return ChangeEvent{}, msg.Context(), fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if evt.Collection == "" || evt.DocumentID == "" || evt.Key.Validate() != nil {
		return ChangeEvent{}, msg.Context(), ErrInvalidEvent
	}
	ctx := correlation.ContextFromMetadata(msg.Context(), map[string]string(msg.Metadata))
	return evt, ctx, nil
}
