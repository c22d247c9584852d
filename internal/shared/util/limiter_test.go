package util

import (
	"context"
	"testing"
	"time"

	"execdoc/internal/core/config"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurst(t *testing.T) {
	l := NewLimiter(config.RateLimit{Enabled: true, RequestsPerMinute: 600, Burst: 2})

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "burst exhausted")
	assert.Equal(t, time.Second, l.RetryAfter())

	time.Sleep(150 * time.Millisecond)
	assert.True(t, l.Allow(), "10 tokens per second refill")
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(config.RateLimit{RequestsPerMinute: 1, Burst: 1})

	assert.Nil(t, l)
	for range 5 {
		assert.True(t, l.Allow())
	}
	assert.Zero(t, l.RetryAfter())

	reg := NewLimiterRegistry(context.Background(), config.RateLimit{}, time.Minute)
	assert.Nil(t, reg)
	assert.True(t, reg.For("127.0.0.1").Allow())
}

func TestLimiterRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := NewLimiterRegistry(ctx, config.RateLimit{Enabled: true, RequestsPerMinute: 6000, Burst: 10}, 100*time.Millisecond)

	l1 := reg.For("1.1.1.1")
	assert.NotSame(t, l1, reg.For("2.2.2.2"), "clients are limited separately")
	assert.Same(t, l1, reg.For("1.1.1.1"))

	time.Sleep(250 * time.Millisecond)
	assert.NotSame(t, l1, reg.For("1.1.1.1"), "idle client is swept")
}
