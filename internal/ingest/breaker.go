package ingest

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/metrics"
)

// BreakerSource guards a remote source with a circuit breaker. While the
// breaker is open, Fetch fails fast with gobreaker.ErrOpenState and the loader
// falls back.
type BreakerSource struct {
	inner Source
	cb    *gobreaker.CircuitBreaker[[]byte]
}

func NewBreakerSource(inner Source) *BreakerSource {
	return NewBreakerSourceWith(inner, gobreaker.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// NewBreakerSourceWith uses explicit settings. Name and OnStateChange are filled in.
func NewBreakerSourceWith(inner Source, settings gobreaker.Settings) *BreakerSource {
	name := inner.Name()
	settings.Name = name
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		logging.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).Msg("source circuit breaker changed state")
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BreakerSource{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func (s *BreakerSource) Name() string { return s.inner.Name() }

func (s *BreakerSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.cb.Execute(func() ([]byte, error) {
		return s.inner.Fetch(ctx)
	})
}

// State reports the breaker state.
func (s *BreakerSource) State() gobreaker.State {
	return s.cb.State()
}

func stateValue(st gobreaker.State) float64 {
	switch st {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
