// Package embeddings turns text into vectors for the knowledge store.
package embeddings

import "context"

// Embedder produces one vector per input text. Implementations must return
// vectors of exactly Dimensions() length, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}
