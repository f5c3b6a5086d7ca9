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

// Metrics stores Prometheus collectors used by the dispatcher and the API.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	dispatchesTotal        *prometheus.CounterVec
	admissionRejectedTotal *prometheus.CounterVec
	providerAttemptsTotal  *prometheus.CounterVec
	providerSendDuration   *prometheus.HistogramVec
	backoffWaitSeconds     prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_dispatcher",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "message_dispatcher",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_dispatcher",
				Name:      "dispatches_total",
				Help:      "Total number of admitted dispatches by delivery outcome.",
			},
			[]string{"status"},
		),
		admissionRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_dispatcher",
				Name:      "admission_rejected_total",
				Help:      "Total number of dispatches rejected before delivery, by reason.",
			},
			[]string{"reason"},
		),
		providerAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_dispatcher",
				Name:      "provider_attempts_total",
				Help:      "Total number of provider send attempts by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		providerSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "message_dispatcher",
				Name:      "provider_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by provider.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),
		backoffWaitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "message_dispatcher",
				Name:      "retry_backoff_seconds",
				Help:      "Backoff waits between provider attempts in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dispatchesTotal,
		m.admissionRejectedTotal,
		m.providerAttemptsTotal,
		m.providerSendDuration,
		m.backoffWaitSeconds,
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

func (m *Metrics) IncDispatch(status string) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncAdmissionRejected(reason string) {
	if m == nil {
		return
	}
	m.admissionRejectedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncProviderAttempt(providerName string, outcome string) {
	if m == nil {
		return
	}
	m.providerAttemptsTotal.WithLabelValues(normalizeLabel(providerName), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveProviderSendDuration(providerName string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.providerSendDuration.WithLabelValues(normalizeLabel(providerName)).Observe(seconds)
}

func (m *Metrics) ObserveBackoff(wait time.Duration) {
	if m == nil {
		return
	}
	m.backoffWaitSeconds.Observe(wait.Seconds())
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
