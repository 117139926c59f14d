package knowledge

import (
	"context"
	"fmt"
	"strings"
)

const DefaultTopK = 8

type Retriever struct {
	store    *Store
	embedder Embedder
	topK     int
}

func NewRetriever(store *Store, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// Retrieve returns the passages most similar to query.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	return r.store.Search(ctx, vectors[0], r.topK)
}
