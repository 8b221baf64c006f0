package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
)

// Circuit breaker defaults for outbound collaborators.
const (
	DefaultMaxRequests         = 3
	DefaultInterval            = 60 * time.Second
	DefaultTimeout             = 30 * time.Second
	DefaultFailureThreshold    = 5
	DefaultFailureRatio        = 0.6
	DefaultMinimumRequestCount = 10
)

// CircuitBreaker wraps gobreaker with logging and metrics.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

// Config tunes a breaker; zero values fall back to the defaults.
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// NewCircuitBreaker creates a breaker that trips on consecutive failures or
// a high failure ratio over enough samples.
func NewCircuitBreaker(cfg Config, logger *logging.Logger, m *metrics.Registry) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= DefaultFailureThreshold {
				return true
			}
			if counts.Requests < DefaultMinimumRequestCount {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= DefaultFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			}
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Execute runs fn through the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}
