package generation

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Limiter spaces generation calls to the endpoint's tolerated request rate.
type Limiter struct {
	inner domain.TextGenerator
	lim   *rate.Limiter
}

// NewLimiter wraps inner. A non-positive rps disables limiting.
func NewLimiter(inner domain.TextGenerator, rps float64) *Limiter {
	l := &Limiter{inner: inner}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		l.lim = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

// Generate waits for a token, then delegates. A wait that cannot finish before ctx ends fails fast.
func (l *Limiter) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if l.lim != nil {
		if err := l.lim.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limiter: %w", errors.Join(err, domain.ErrRateLimited))
		}
	}
	return l.inner.Generate(ctx, req) //nolint:wrapcheck // decorator
}
