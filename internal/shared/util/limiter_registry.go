package util

import (
	"context"
	"sync"
	"time"

	"execdoc/internal/core/config"
)

// LimiterRegistry keeps one Limiter per HTTP client and forgets clients
// idle for longer than ttl.
type LimiterRegistry struct {
	cfg config.RateLimit
	ttl time.Duration

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter *Limiter
	seen    time.Time
}

// NewLimiterRegistry returns nil when cfg is disabled. Idle clients are
// swept until ctx is done.
func NewLimiterRegistry(ctx context.Context, cfg config.RateLimit, ttl time.Duration) *LimiterRegistry {
	if !cfg.Enabled {
		return nil
	}
	reg := &LimiterRegistry{cfg: cfg, ttl: ttl, clients: make(map[string]*client)}
	go reg.sweep(ctx)
	return reg
}

// For returns the limiter of key. A nil registry yields a nil Limiter,
// which admits everything.
func (r *LimiterRegistry) For(key string) *Limiter {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[key]
	if !ok {
		c = &client{limiter: NewLimiter(r.cfg)}
		r.clients[key] = c
	}
	c.seen = time.Now()
	return c.limiter
}

func (r *LimiterRegistry) sweep(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.mu.Lock()
			for key, c := range r.clients {
				if now.Sub(c.seen) > r.ttl {
					delete(r.clients, key)
				}
			}
			r.mu.Unlock()
		}
	}
}
