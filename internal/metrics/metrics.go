package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	sessionChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "session",
			Name:      "changes_total",
			Help:      "Session record transitions that emitted a change event.",
		},
		[]string{"op"},
	)

	orderWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "writes_total",
			Help:      "Composite order writes by outcome.",
		},
		[]string{"outcome"},
	)

	orphanOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "orphans",
			Help:      "Order headers without line items found by the last sweep.",
		},
	)
)

// Order write outcomes.
const (
	OrderPlaced         = "placed"
	OrderHeaderFailed   = "header_failed"
	OrderItemsFailed    = "items_failed"
	OrderCompensated    = "compensated"
	OrderInvalidRequest = "invalid"
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		sessionChanges,
		orderWrites,
		orphanOrders,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordSessionChange counts a notified session transition.
func RecordSessionChange(op string) {
	sessionChanges.WithLabelValues(op).Inc()
}

// RecordOrderWrite counts a composite order write outcome.
func RecordOrderWrite(outcome string) {
	orderWrites.WithLabelValues(outcome).Inc()
}

// SetOrphanOrders publishes the orphan count from the latest sweep.
func SetOrphanOrders(n int) {
	orphanOrders.Set(float64(n))
}
