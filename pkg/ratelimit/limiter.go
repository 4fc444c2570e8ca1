package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"simcollect/pkg/config"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
	// Delay reports how long Wait would block right now
	Delay() time.Duration
}

// TokenBucket is a token bucket that accrues one token every interval up to
// its capacity.
type TokenBucket struct {
	lim      *rate.Limiter
	interval time.Duration
	now      func() time.Time
}

// NewTokenBucket creates a full bucket holding up to capacity tokens and
// gaining one token per interval. A non-positive interval never blocks.
func NewTokenBucket(capacity int, interval time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucket{
		lim:      rate.NewLimiter(limit, capacity),
		interval: interval,
		now:      time.Now,
	}
}

// FromSettings builds a bucket allowing RequestsPerMinute on average with
// bursts of BurstSize.
func FromSettings(cfg config.RateLimitConfig) *TokenBucket {
	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 1
	}
	return NewTokenBucket(cfg.BurstSize, time.Minute/time.Duration(rpm))
}

// Wait blocks until a token is available. A cancelled context gives the
// token back and returns the context's error.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := tb.now()
	r := tb.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.CancelAt(tb.now())
		return ctx.Err()
	}
}

// Delay reports how long a caller would wait for the next token right now.
func (tb *TokenBucket) Delay() time.Duration {
	if tb.interval <= 0 {
		return 0
	}
	tokens := tb.lim.TokensAt(tb.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(tb.interval))
}
