package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/metrics"
)

// WithBreaker wraps an adapter with a circuit breaker so that a network
// outage stops costing a full fetch timeout on every run. The breaker opens
// after three consecutive failures and probes again after two minutes.
func WithBreaker(inner Adapter) Adapter {
	network := string(inner.Network())
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        network,
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Source circuit breaker state changed",
				"network", name, "from", from.String(), "to", to.String())
			metrics.SourceBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})
	return &breakerAdapter{inner: inner, cb: cb}
}

type breakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerAdapter) Network() domain.Network { return b.inner.Network() }

func (b *breakerAdapter) FetchNew(ctx context.Context) ([]domain.RawPost, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.FetchNew(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, newFetchError(b.inner.Network(), "circuit", err)
		}
		return nil, err
	}
	return result.([]domain.RawPost), nil
}
