// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Service = "neststay"

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// BookingsTotal counts create attempts by outcome (confirmed,
	// insufficient_inventory, validation, error).
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking create attempts by outcome",
		},
		[]string{"outcome"},
	)

	// BookingTransitions counts status changes applied to existing bookings.
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions",
		},
		[]string{"to"},
	)

	// LedgerLockWait observes how long create waited for ledger row locks.
	LedgerLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_lock_wait_seconds",
			Help:    "Time spent acquiring inventory row locks",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// LedgerInvariantViolations counts CapacityExceeded and
	// InventoryCorruption conditions.
	LedgerInvariantViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_invariant_violations_total",
			Help: "Ledger invariant violations detected by the coordinator or the auditor",
		},
		[]string{"kind"},
	)

	// EventsPublished counts booking events by queue and result.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_events_published_total",
			Help: "Booking events handed to the broker",
		},
		[]string{"queue", "result"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "circuit_name"},
	)

	// CircuitBreakerFailures tracks calls that failed through a breaker
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"service", "circuit_name"},
	)
)

// Middleware records request count and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			RequestsTotal.WithLabelValues(Service, method, route, strconv.Itoa(c.Response().Status)).Inc()
			RequestDuration.WithLabelValues(Service, method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
