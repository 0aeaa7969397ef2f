package knowledge

import "context"

// Snippet is one ranked piece of retrieved knowledge.
type Snippet struct {
	SourceName string  `json:"source_name"`
	Text       string  `json:"text"`
	Relevance  float32 `json:"relevance"`
}

// Retriever is the read boundary the dialogue engine consumes. Retrieval is
// best-effort: implementations return an empty result for an empty corpus
// rather than an error.
type Retriever interface {
	Search(ctx context.Context, userID, query string, topK int) ([]Snippet, error)
}
