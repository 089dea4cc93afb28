package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
)

// BreakerOptions tunes when the breaker opens.
type BreakerOptions struct {
	Name         string
	MinRequests  uint32        // requests in the window before the ratio is considered
	FailureRatio float64       // opens at or above this failure share
	OpenTimeout  time.Duration // open → half-open delay
}

// Breaker short-circuits generation after repeated failures so a dead model endpoint
// costs one fast error per query instead of one timeout per query.
type Breaker struct {
	inner  domain.TextGenerator
	cb     *gobreaker.CircuitBreaker[string]
	name   string
	logger *zap.Logger
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner domain.TextGenerator, opts BreakerOptions, logger *zap.Logger) *Breaker {
	metrics.BreakerState.WithLabelValues(opts.Name).Set(stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= opts.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Generation circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// caller cancellation says nothing about the endpoint
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{inner: inner, cb: cb, name: opts.Name, logger: logger}
}

// Generate implements domain.TextGenerator.
func (b *Breaker) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	out, err := b.cb.Execute(func() (string, error) {
		return b.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%s: %w", b.name, domain.ErrCircuitOpen)
		}
		return "", err //nolint:wrapcheck // inner error already carries context
	}
	return out, nil
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
