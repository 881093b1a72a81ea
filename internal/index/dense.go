package index

import (
	"context"
	"fmt"

	"github.com/dshills/malrag-mcp/internal/corpus"
	"github.com/dshills/malrag-mcp/internal/embedder"
	"github.com/dshills/malrag-mcp/pkg/types"
)

// DenseIndex performs nearest-neighbor lookup by embedding the query and
// scanning stored sample vectors. Embedding-service failures surface as
// ErrEmbeddingUnavailable so the caller can degrade to sparse-only.
type DenseIndex struct {
	embedder embedder.Embedder
	store    corpus.Store
}

// NewDenseIndex wires the embedding adapter to the sample store.
func NewDenseIndex(emb embedder.Embedder, store corpus.Store) *DenseIndex {
	return &DenseIndex{embedder: emb, store: store}
}

// Search embeds queryText and returns up to k cosine-nearest samples.
func (d *DenseIndex) Search(ctx context.Context, queryText string, k int) ([]types.ScoredMatch, error) {
	emb, err := d.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: queryText})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}

	matches, err := d.store.SearchVector(ctx, emb.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector scan: %v", types.ErrIndexUnavailable, err)
	}

	return matches, nil
}

// Embed exposes the underlying embedder for ingestion, which stores the
// vector alongside the sample.
func (d *DenseIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := d.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}
	return emb.Vector, nil
}
