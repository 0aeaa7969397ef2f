package llm

import (
	"context"
	"time"
)

// BoundedProvider wraps a Provider with a per-request deadline and maps raw
// provider failures onto ErrUnavailable / ErrTimeout. Webhook turns must
// answer within the telephony provider's patience, so no completion is ever
// left pending.
type BoundedProvider struct {
	provider Provider
	timeout  time.Duration
}

// NewBoundedProvider wraps the given provider with the given per-request
// timeout.
func NewBoundedProvider(provider Provider, timeout time.Duration) *BoundedProvider {
	return &BoundedProvider{provider: provider, timeout: timeout}
}

func (b *BoundedProvider) Name() string {
	return b.provider.Name()
}

func (b *BoundedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.provider.Complete(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}
