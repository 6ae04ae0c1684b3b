package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Role        string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "ticketflow"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	role := strings.TrimSpace(c.Role)
	if role == "" {
		role = "monolith"
	}
	return prometheus.Labels{
		"service":      serviceName,
		"service_role": role,
		"env":          environment,
	}
}

// Metrics exposes the domain counters for dispatch, mail, lifecycle,
// reminders and the change feed.
type Metrics struct {
	dispatchOutcomes *prometheus.CounterVec
	mailDeliveries   *prometheus.CounterVec
	lifecycleSteps   *prometheus.CounterVec
	reminderSends    *prometheus.CounterVec
	feedPublished    *prometheus.CounterVec
	feedBacklog      prometheus.Gauge
	handlerDuration  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRegisterer returns the process-wide registerer.
func NewRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// New registers the domain metrics on registerer.
func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	dispatchOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ticketflow_push_dispatch_total",
		Help:        "Push dispatch outcomes by recipient role.",
		ConstLabels: constLabels,
	}, []string{"role", "outcome"})
	mailDeliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ticketflow_mail_delivery_total",
		Help:        "Mail queue delivery attempts by terminal status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	lifecycleSteps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ticketflow_lifecycle_step_total",
		Help:        "Payment lifecycle saga steps by result.",
		ConstLabels: constLabels,
	}, []string{"step", "result"})
	reminderSends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ticketflow_reminder_sent_total",
		Help:        "Subscription reminders sent by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	feedPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ticketflow_changefeed_published_total",
		Help:        "Change events relayed from the outbox by collection and status.",
		ConstLabels: constLabels,
	}, []string{"collection", "status"})
	feedBacklog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "ticketflow_changefeed_backlog",
		Help:        "Unpublished change events seen by the last relay batch.",
		ConstLabels: constLabels,
	})
	handlerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ticketflow_changefeed_handler_duration_seconds",
		Help:        "Change event handler durations by collection.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"collection", "status"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ticketflow_http_requests_total",
		Help:        "HTTP requests by method, route and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ticketflow_http_request_duration_seconds",
		Help:        "HTTP request latency by method and route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	registerer.MustRegister(
		dispatchOutcomes,
		mailDeliveries,
		lifecycleSteps,
		reminderSends,
		feedPublished,
		feedBacklog,
		handlerDuration,
		httpRequests,
		httpDuration,
	)

	return &Metrics{
		dispatchOutcomes: dispatchOutcomes,
		mailDeliveries:   mailDeliveries,
		lifecycleSteps:   lifecycleSteps,
		reminderSends:    reminderSends,
		feedPublished:    feedPublished,
		feedBacklog:      feedBacklog,
		handlerDuration:  handlerDuration,
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
	}
}

// RecordDispatch counts one push dispatch outcome.
func (m *Metrics) RecordDispatch(role, outcome string) {
	if m == nil {
		return
	}
	m.dispatchOutcomes.WithLabelValues(sanitizeLabel(role), sanitizeLabel(outcome)).Inc()
}

// RecordMailDelivery counts one terminal mail queue status.
func (m *Metrics) RecordMailDelivery(status string) {
	if m == nil {
		return
	}
	m.mailDeliveries.WithLabelValues(sanitizeLabel(status)).Inc()
}

// RecordLifecycleStep counts a lifecycle saga step result.
func (m *Metrics) RecordLifecycleStep(step, result string) {
	if m == nil {
		return
	}
	m.lifecycleSteps.WithLabelValues(sanitizeLabel(step), sanitizeLabel(result)).Inc()
}

// RecordReminder counts one reminder sent.
func (m *Metrics) RecordReminder(kind string) {
	if m == nil {
		return
	}
	m.reminderSends.WithLabelValues(sanitizeLabel(kind)).Inc()
}

// RecordPublished counts relayed change events.
func (m *Metrics) RecordPublished(collection, status string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.feedPublished.WithLabelValues(sanitizeLabel(collection), sanitizeLabel(status)).Add(float64(count))
}

// SetFeedBacklog updates the backlog gauge.
func (m *Metrics) SetFeedBacklog(value int) {
	if m == nil {
		return
	}
	m.feedBacklog.Set(float64(value))
}

// ObserveHandler records a change event handler invocation.
func (m *Metrics) ObserveHandler(collection, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(sanitizeLabel(collection), sanitizeLabel(status)).Observe(duration.Seconds())
}

// ObserveHTTPRequest records an HTTP request and its latency.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	route = sanitizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func sanitizeLabel(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "unknown"
	}
	return val
}
