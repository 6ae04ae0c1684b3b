package observability

import (
	"testing"

	"github.com/smallbiznis/ticketflow/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNamesServiceByRole(t *testing.T) {
	t.Setenv("SERVICE_ROLE", "")

	cfg := LoadConfig(config.Config{AppName: "ticketflow"}, RoleWorker)
	assert.Equal(t, "ticketflow-worker", cfg.ServiceName)
	assert.Equal(t, RoleWorker, cfg.Role)

	cfg = LoadConfig(config.Config{AppName: "ticketflow"}, "")
	assert.Equal(t, "ticketflow", cfg.ServiceName)
	assert.Equal(t, RoleMonolith, cfg.Role)
}

func TestServiceRoleEnvOverridesBinaryRole(t *testing.T) {
	t.Setenv("SERVICE_ROLE", "Scheduler")

	cfg := LoadConfig(config.Config{}, RoleAPI)
	assert.Equal(t, RoleScheduler, cfg.Role)
	assert.Equal(t, "ticketflow-scheduler", cfg.ServiceName)
}

func TestLoadConfigTracingOverrides(t *testing.T) {
	t.Setenv("SERVICE_ROLE", "")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "4")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg := LoadConfig(config.Config{OTLPEndpoint: "otel:4317", Environment: "prod"}, RoleMonolith)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, "otel:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.Equal(t, "prod", cfg.Environment)
	assert.True(t, cfg.Debug())
}
