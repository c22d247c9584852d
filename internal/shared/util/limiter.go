package util

import (
	"time"

	"execdoc/internal/core/config"

	"golang.org/x/time/rate"
)

// Limiter admits RPC requests against a requests-per-minute budget. A nil
// *Limiter admits everything, so callers need not check whether limiting
// is enabled.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter returns nil when cfg is disabled.
func NewLimiter(cfg config.RateLimit) *Limiter {
	if !cfg.Enabled {
		return nil
	}
	return &Limiter{inner: rate.NewLimiter(perSecond(cfg.RequestsPerMinute), cfg.Burst)}
}

func perSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60)
}

// Allow consumes one token if available.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.inner.Allow()
}

// RetryAfter is how long a rejected client should wait, rounded up to
// whole seconds for the Retry-After header.
func (l *Limiter) RetryAfter() time.Duration {
	if l == nil {
		return 0
	}
	r := l.inner.Reserve()
	defer r.Cancel()
	return r.Delay().Truncate(time.Second) + time.Second
}
