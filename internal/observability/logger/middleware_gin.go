package logger

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/ticketflow/internal/observability/context"
	"github.com/smallbiznis/ticketflow/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware logs each request with correlation identifiers and safe fields.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = withCorrelation(c, ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", normalizeBytes(c.Request.ContentLength)),
			zap.Int("bytes_out", normalizeSize(c.Writer.Size())),
		}

		fields = append(fields, paramFields(c)...)

		var errorType, errorCode string
		if lastErr := c.Errors.Last(); lastErr != nil {
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		log := FromContext(c.Request.Context())
		logRequest(log, route, status, fields)
	}
}

// resourceParams are the document identifiers the API addresses by path.
var resourceParams = []string{"bookingId", "txnId", "uid", "customerId"}

// paramFields returns the tenant partition and addressed document of a
// request. Notification user ids are omitted alongside their device tokens.
func paramFields(c *gin.Context) []zap.Field {
	tenantID := strings.TrimSpace(c.Param("tenantId"))
	if tenantID == "" {
		return nil
	}
	fields := []zap.Field{
		zap.String("tenant_id", tenantID),
		zap.String("app_id", strings.TrimSpace(c.Param("appId"))),
	}
	for _, name := range resourceParams {
		if value := strings.TrimSpace(c.Param(name)); value != "" {
			fields = append(fields, zap.String("resource_id", value))
			break
		}
	}
	return fields
}

const (
	headerRequestID     = "X-Request-Id"
	headerCorrelationID = "X-Correlation-Id"
)

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(headerRequestID, requestID)
	return requestID
}

// withCorrelation adopts the caller's correlation id, or mints one, so that
// change events written by this request carry it to the workers.
func withCorrelation(c *gin.Context, ctx context.Context) context.Context {
	if cid := strings.TrimSpace(c.GetHeader(headerCorrelationID)); cid != "" {
		ctx = correlation.ContextWithCorrelationID(ctx, cid)
	}
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	c.Header(headerCorrelationID, cid)
	return ctx
}

func logRequest(log *zap.Logger, route string, status int, fields []zap.Field) {
	if log == nil {
		return
	}

	level := zap.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zap.ErrorLevel
	}
	if isHealth(route) && status < http.StatusBadRequest {
		level = zap.DebugLevel
	}

	if isMetric(route) {
		level = zap.DebugLevel
	}

	switch level {
	case zap.DebugLevel:
		log.Debug("http.request", fields...)
	case zap.ErrorLevel:
		log.Error("http.request", fields...)
	default:
		log.Info("http.request", fields...)
	}
}

func isMetric(route string) bool {
	return strings.EqualFold(strings.TrimSpace(route), "/metrics")
}

func isHealth(route string) bool {
	return strings.EqualFold(strings.TrimSpace(route), "/health")
}

func normalizeBytes(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}

func normalizeSize(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
