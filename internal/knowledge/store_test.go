package knowledge

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
)

// stubEmbedder produces deterministic pseudo-embeddings from token hashes so
// tests run without network access. Similar texts share tokens and therefore
// land closer together.
type stubEmbedder struct{}

func (stubEmbedder) Name() string    { return "stub" }
func (stubEmbedder) Dimensions() int { return 16 }

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 16)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[h.Sum32()%16] += 1
		}
		out[i] = vec
	}
	return out, nil
}

func TestStoreSearchEmptyCorpus(t *testing.T) {
	store, err := NewStore(stubEmbedder{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	snippets, err := store.Search(context.Background(), "user-1", "opening hours", 3)
	if err != nil {
		t.Fatalf("Search on empty corpus returned error: %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("expected no snippets, got %d", len(snippets))
	}
}

func TestStoreAddAndSearch(t *testing.T) {
	store, err := NewStore(stubEmbedder{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	n, err := store.AddDocument(ctx, "user-1", "hours.md", "we are open monday to friday from nine to five")
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 chunk, got %d", n)
	}
	if _, err := store.AddDocument(ctx, "user-1", "pricing.md", "a standard visit costs fifty dollars"); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	snippets, err := store.Search(ctx, "user-1", "when are you open monday", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	if snippets[0].SourceName != "hours.md" {
		t.Errorf("top snippet source = %q, want hours.md", snippets[0].SourceName)
	}
	if snippets[0].Relevance <= 0 {
		t.Errorf("expected positive relevance, got %f", snippets[0].Relevance)
	}
}

func TestStoreSearchFiltersByUser(t *testing.T) {
	store, err := NewStore(stubEmbedder{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.AddDocument(ctx, "user-a", "a.md", "alpha clinic opens monday"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddDocument(ctx, "user-b", "b.md", "beta garage opens sunday"); err != nil {
		t.Fatal(err)
	}

	snippets, err := store.Search(ctx, "user-a", "when do you open", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, s := range snippets {
		if s.SourceName == "b.md" {
			t.Errorf("search leaked another user's document: %+v", s)
		}
	}
}

func TestStoreAddDocumentEmpty(t *testing.T) {
	store, err := NewStore(stubEmbedder{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	n, err := store.AddDocument(context.Background(), "user-1", "empty.md", "   ")
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 chunks for blank document, got %d", n)
	}
}
