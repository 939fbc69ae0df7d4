package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and delivery flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec
	notificationsEnqueued     *prometheus.CounterVec
	duplicatesSuppressed      *prometheus.CounterVec
	notificationsSentTotal    *prometheus.CounterVec
	notificationsFailedTotal  *prometheus.CounterVec
	notificationsSkippedTotal *prometheus.CounterVec
	rescheduledTotal          *prometheus.CounterVec
	deliveryPassDuration      prometheus.Histogram
	deliveryInflight          prometheus.Gauge
	lifecycleEventsTotal      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "frame_notifier",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		notificationsEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "notifications_enqueued_total",
				Help:      "Total number of notifications accepted into the queue.",
			},
			[]string{"category"},
		),
		duplicatesSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "duplicates_suppressed_total",
				Help:      "Total number of enqueue calls dropped by idempotency dedup.",
			},
			[]string{"category"},
		),
		notificationsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "notifications_sent_total",
				Help:      "Total number of notifications confirmed delivered.",
			},
			[]string{"category"},
		),
		notificationsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "notifications_failed_total",
				Help:      "Total number of notifications that exhausted their retries.",
			},
			[]string{"category"},
		),
		notificationsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "notifications_skipped_total",
				Help:      "Total number of notifications skipped, by reason.",
			},
			[]string{"reason"},
		),
		rescheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "notifications_rescheduled_total",
				Help:      "Total number of notifications pushed to a later attempt, by cause.",
			},
			[]string{"cause"},
		),
		deliveryPassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "frame_notifier",
				Name:      "delivery_pass_duration_seconds",
				Help:      "Duration of one full delivery pass in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		deliveryInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "frame_notifier",
				Name:      "delivery_pass_inflight",
				Help:      "Whether a delivery pass is currently running (0 or 1).",
			},
		),
		lifecycleEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "frame_notifier",
				Name:      "lifecycle_events_total",
				Help:      "Total number of processed lifecycle webhook events by type and result.",
			},
			[]string{"event", "result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.notificationsEnqueued,
		m.duplicatesSuppressed,
		m.notificationsSentTotal,
		m.notificationsFailedTotal,
		m.notificationsSkippedTotal,
		m.rescheduledTotal,
		m.deliveryPassDuration,
		m.deliveryInflight,
		m.lifecycleEventsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncEnqueued(category string) {
	if m == nil {
		return
	}
	m.notificationsEnqueued.WithLabelValues(normalizeLabel(category)).Inc()
}

func (m *Metrics) IncDuplicateSuppressed(category string) {
	if m == nil {
		return
	}
	m.duplicatesSuppressed.WithLabelValues(normalizeLabel(category)).Inc()
}

func (m *Metrics) IncSent(category string) {
	if m == nil {
		return
	}
	m.notificationsSentTotal.WithLabelValues(normalizeLabel(category)).Inc()
}

func (m *Metrics) IncFailed(category string) {
	if m == nil {
		return
	}
	m.notificationsFailedTotal.WithLabelValues(normalizeLabel(category)).Inc()
}

func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.notificationsSkippedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncRescheduled(cause string) {
	if m == nil {
		return
	}
	m.rescheduledTotal.WithLabelValues(normalizeLabel(cause)).Inc()
}

func (m *Metrics) ObserveDeliveryPassDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryPassDuration.Observe(seconds)
}

func (m *Metrics) SetDeliveryInflight(running bool) {
	if m == nil {
		return
	}
	if running {
		m.deliveryInflight.Set(1)
		return
	}
	m.deliveryInflight.Set(0)
}

func (m *Metrics) IncLifecycleEvent(event string, result string) {
	if m == nil {
		return
	}
	m.lifecycleEventsTotal.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
