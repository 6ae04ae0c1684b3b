package ctxlogger

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/ticketflow/pkg/telemetry/correlation"
	"github.com/smallbiznis/ticketflow/pkg/tenantctx"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type documentKey struct{}

// Document identifies the change-feed document a handler is working on.
type Document struct {
	Collection string
	ID         string
	ChangeID   string
}

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// ContextWithDocument annotates the context with the document being handled.
func ContextWithDocument(ctx context.Context, doc Document) context.Context {
	if doc.Collection == "" {
		return ctx
	}
	return context.WithValue(ctx, documentKey{}, doc)
}

// DocumentFromContext returns the document set by ContextWithDocument.
func DocumentFromContext(ctx context.Context) (Document, bool) {
	if ctx == nil {
		return Document{}, false
	}
	doc, ok := ctx.Value(documentKey{}).(Document)
	return doc, ok
}

// FromContext returns the global logger enriched from ctx.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds correlation, trace, tenant and document fields to base.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 10)
	fields = append(fields, ExtractCorrelation(ctx))
	fields = append(fields, ExtractTrace(ctx)...)

	name := "unknown"
	if namePtr := serviceName.Load(); namePtr != nil {
		name = *namePtr
	}
	fields = append(fields, zap.String("service_name", name))

	if key, ok := tenantctx.Key(ctx); ok {
		fields = append(fields, zap.String("tenant_id", key.TenantID), zap.String("app_id", key.AppID))
	}
	if doc, ok := DocumentFromContext(ctx); ok {
		fields = append(fields, zap.String("collection", doc.Collection), zap.String("document_id", doc.ID))
		if doc.ChangeID != "" {
			fields = append(fields, zap.String("change_id", doc.ChangeID))
		}
	}

	return base.With(fields...)
}

func ExtractCorrelation(ctx context.Context) zap.Field {
	cid := correlation.ExtractCorrelationID(ctx)
	if cid == "" {
		_, cid = correlation.EnsureCorrelationID(ctx)
	}
	return zap.String("correlation_id", cid)
}

// ExtractTrace returns empty ids when ctx carries no valid span.
func ExtractTrace(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return []zap.Field{zap.String("trace_id", ""), zap.String("span_id", "")}
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
