// Package breaker wraps sony/gobreaker with prometheus state export.
package breaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/metrics"
)

// ErrUnavailable is returned when the breaker rejects a call.
var ErrUnavailable = errors.New("dependency unavailable")

// Breaker guards calls to one remote dependency.
type Breaker struct {
	cb           *gobreaker.CircuitBreaker
	name         string
	isSuccessful func(err error) bool
}

// Options tunes a breaker.  Zero fields take the defaults below.
type Options struct {
	MaxRequests uint32        // probes allowed while half-open (3)
	Interval    time.Duration // failure counting window (15s)
	Timeout     time.Duration // open -> half-open delay (30s)
	// IsSuccessful classifies results; errors it accepts do not count
	// as failures.  Nil means only a nil error is a success.
	IsSuccessful func(err error) bool
}

// New creates a breaker that trips once at least three calls were made
// in the window and 60% of them failed.
func New(name string, opts Options, log *zap.Logger) *Breaker {
	if opts.MaxRequests == 0 {
		opts.MaxRequests = 3
	}
	if opts.Interval == 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.IsSuccessful == nil {
		opts.IsSuccessful = func(err error) bool { return err == nil }
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: opts.IsSuccessful,
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(metrics.Service, cbName).Set(stateValue(to))
			log.Info("circuit breaker state changed",
				zap.String("circuit", cbName), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(metrics.Service, name).Set(0)
	return &Breaker{cb: cb, name: name, isSuccessful: opts.IsSuccessful}
}

// Do runs fn through the breaker.  A rejected call returns an error
// wrapping ErrUnavailable.  Only errors counted against the breaker
// increment the failure metric.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerFailures.WithLabelValues(metrics.Service, b.name).Inc()
		return fmt.Errorf("%w: circuit %s: %v", ErrUnavailable, b.name, err)
	}
	if !b.isSuccessful(err) {
		metrics.CircuitBreakerFailures.WithLabelValues(metrics.Service, b.name).Inc()
	}
	return err
}

// State returns the breaker state name (closed, open, half-open).
func (b *Breaker) State() string { return b.cb.State().String() }

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	}
	return 0
}
