package correlation

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// correlationKey is an unexported type for context keys within this package.
type correlationKey struct{}

// Metadata keys carried on change-feed messages.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataTraceID       = "trace_id"
	MetadataSpanID        = "span_id"
	MetadataPublishedAt   = "published_at"
)

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// InjectIntoMetadata writes correlation and tracing identifiers into a
// string metadata map, keeping an existing correlation id.
func InjectIntoMetadata(ctx context.Context, md map[string]string) {
	if md == nil {
		return
	}
	cid := md[MetadataCorrelationID]
	if cid == "" {
		cid = ExtractCorrelationID(ctx)
	}
	if cid == "" {
		cid = ulid.Make().String()
	}
	md[MetadataCorrelationID] = cid

	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		md[MetadataTraceID] = sc.TraceID().String()
		md[MetadataSpanID] = sc.SpanID().String()
	}
	md[MetadataPublishedAt] = time.Now().UTC().Format(time.RFC3339)
}

// ContextFromMetadata restores correlation and remote span identifiers.
func ContextFromMetadata(ctx context.Context, md map[string]string) context.Context {
	ctx = ContextWithCorrelationID(ctx, md[MetadataCorrelationID])
	return ContextWithRemoteSpan(ctx, md[MetadataTraceID], md[MetadataSpanID])
}

// ContextWithRemoteSpan seeds the context with a remote span if valid identifiers are provided.
func ContextWithRemoteSpan(ctx context.Context, traceIDHex, spanIDHex string) context.Context {
	if traceIDHex == "" || spanIDHex == "" {
		return ctx
	}

	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(spanIDHex)
	if err != nil {
		return ctx
	}

	parent := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled, Remote: true})
	return trace.ContextWithSpanContext(ctx, parent)
}
