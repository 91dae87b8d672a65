package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_ledger_operations_total",
			Help: "Ledger reserve/release outcomes per result",
		},
		[]string{"operation", "result"},
	)

	LedgerRetries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inventory_ledger_attempts",
			Help:    "Attempts needed by a reserve call before it settled",
			Buckets: prometheus.LinearBuckets(1, 1, 8),
		},
	)

	SeatHolds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_hold_operations_total",
			Help: "Seat hold and release outcomes",
		},
		[]string{"operation", "result"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order state transitions by target status",
		},
		[]string{"to"},
	)

	SweepReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_released_total",
			Help: "Holds reclaimed by the expiration sweeper",
		},
		[]string{"scan"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweeper_duration_seconds",
			Help:    "Duration of a sweep scan",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scan"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func ObserveRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
