package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/voiceline/voiceline/internal/embeddings"
)

const collectionName = "knowledge"

// Chunking defaults, matching the ingestion pipeline that originally
// populated the store.
const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// Store holds per-user document chunks in a chromem-go collection and serves
// semantic snippet search for call turns.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewStore creates a new in-memory knowledge store.
func NewStore(embedder embeddings.Embedder) (*Store, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

// AddDocument chunks the given text and stores each chunk tagged with the
// owning user and source name.
func (s *Store) AddDocument(ctx context.Context, userID, sourceName, text string) (int, error) {
	chunks := ChunkText(text, defaultChunkSize, defaultChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      uuid.New().String(),
			Content: chunk,
			Metadata: map[string]string{
				"user_id":  userID,
				"source":   sourceName,
				"added_at": now,
			},
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("adding documents: %w", err)
	}
	return len(chunks), nil
}

// Search returns up to topK snippets from the user's documents ranked by
// similarity to the query. An empty corpus yields an empty result, never an
// error.
func (s *Store) Search(ctx context.Context, userID, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 3
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	where := map[string]string{"user_id": userID}

	results, err := s.collection.Query(ctx, query, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	snippets := make([]Snippet, len(results))
	for i, r := range results {
		snippets[i] = Snippet{
			SourceName: r.Metadata["source"],
			Text:       r.Content,
			Relevance:  r.Similarity,
		}
	}

	return snippets, nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Persist saves the store's data to the given directory.
func (s *Store) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/knowledge.gob.gz", true, "")
}

// Load restores the store's data from the given directory.
func (s *Store) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(dir+"/knowledge.gob.gz", "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}
