package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDeliveryCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncEnqueued("DAILY_REMINDER")
	metrics.IncDuplicateSuppressed("daily_reminder")
	metrics.IncSent("daily_reminder")
	metrics.IncFailed("daily_reminder")
	metrics.IncSkipped("no endpoint")
	metrics.IncRescheduled("rate_limited")
	metrics.ObserveDeliveryPassDuration(150 * time.Millisecond)
	metrics.SetDeliveryInflight(true)
	metrics.SetDeliveryInflight(false)
	metrics.IncLifecycleEvent("frame_added", "ok")

	if got := testutil.ToFloat64(metrics.notificationsEnqueued.WithLabelValues("daily_reminder")); got != 1 {
		t.Fatalf("notifications_enqueued_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.duplicatesSuppressed.WithLabelValues("daily_reminder")); got != 1 {
		t.Fatalf("duplicates_suppressed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsSentTotal.WithLabelValues("daily_reminder")); got != 1 {
		t.Fatalf("notifications_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsSkippedTotal.WithLabelValues("no endpoint")); got != 1 {
		t.Fatalf("notifications_skipped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.rescheduledTotal.WithLabelValues("rate_limited")); got != 1 {
		t.Fatalf("notifications_rescheduled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.deliveryInflight); got != 0 {
		t.Fatalf("delivery_pass_inflight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.lifecycleEventsTotal.WithLabelValues("frame_added", "ok")); got != 1 {
		t.Fatalf("lifecycle_events_total = %v, want 1", got)
	}
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncEnqueued("welcome")
	metrics.IncSent("welcome")
	metrics.IncSkipped("no token")
	metrics.SetDeliveryInflight(true)
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
