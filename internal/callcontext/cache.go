package callcontext

import "context"

// Cache mirrors active call contexts for low-latency turn handling. A miss
// returns ErrNotFound; the manager then falls back to the durable store.
type Cache interface {
	Get(ctx context.Context, callID string) (*CallContext, error)
	Put(ctx context.Context, cc *CallContext) error
	Delete(ctx context.Context, callID string) error
}
