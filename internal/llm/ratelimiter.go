package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider throttles completions to a requests-per-minute budget
// with a token bucket. One busy call must not exhaust the account's quota
// for every other active call.
type RateLimitedProvider struct {
	inner Provider
	rpm   int

	mu       sync.Mutex
	tokens   float64
	lastTick time.Time
}

// NewRateLimitedProvider allows at most rpm requests per minute through to
// the wrapped provider; excess requests wait.
func NewRateLimitedProvider(inner Provider, rpm int) Provider {
	return &RateLimitedProvider{
		inner:    inner,
		rpm:      rpm,
		tokens:   float64(rpm),
		lastTick: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.inner.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, req)
}

func (r *RateLimitedProvider) acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.tokens += now.Sub(r.lastTick).Minutes() * float64(r.rpm)
		if r.tokens > float64(r.rpm) {
			r.tokens = float64(r.rpm)
		}
		r.lastTick = now

		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		// Poll rather than compute the exact wait; a live call gives up
		// via ctx long before precision matters.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
