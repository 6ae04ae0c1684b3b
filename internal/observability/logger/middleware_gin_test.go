package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGinMiddlewareLogsTenantAndResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeGlobal(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "conflict", "status_regression" },
	}))
	router.PUT("/v1/tenants/:tenantId/apps/:appId/payment_transactions/:txnId", func(c *gin.Context) {
		_ = c.Error(errors.New("regression"))
		c.Status(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPut, "/v1/tenants/acme/apps/rail/payment_transactions/TX1", nil)
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Correlation-Id", "corr-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, "req-1", resp.Header().Get("X-Request-Id"))
	assert.Equal(t, "corr-1", resp.Header().Get("X-Correlation-Id"))
	entries := logs.FilterMessage("http.request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "acme", fields["tenant_id"])
	assert.Equal(t, "rail", fields["app_id"])
	assert.Equal(t, "TX1", fields["resource_id"])
	assert.Equal(t, "status_regression", fields["error_code"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestGinMiddlewareHealthIsDebug(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observeGlobal(t)

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.NotContains(t, entry.ContextMap(), "tenant_id")
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
	assert.NotEmpty(t, resp.Header().Get("X-Correlation-Id"))
}
