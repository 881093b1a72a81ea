package corpus

import (
	"context"
	"errors"

	"github.com/dshills/malrag-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested sample doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when ingesting a duplicate sample
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the typed read/write interface over the persistent sample
// corpus. It owns no retrieval logic beyond translating typed queries and
// inserts; ranking, clustering, and rule synthesis live upstream.
type Store interface {
	// PutSample inserts a sample. Samples are immutable once ingested;
	// re-inserting the same content is rejected with ErrAlreadyExists.
	PutSample(ctx context.Context, sample *types.Sample) error

	// GetSample retrieves a sample by ID.
	GetSample(ctx context.Context, id string) (*types.Sample, error)

	// GetSamples retrieves a batch of samples keyed by ID. Missing IDs are
	// simply absent from the result, not an error.
	GetSamples(ctx context.Context, ids []string) (map[string]*types.Sample, error)

	// ListSamples returns samples in ingestion order.
	ListSamples(ctx context.Context, limit, offset int) ([]*types.Sample, error)

	// DeleteSample removes a sample by ID.
	DeleteSample(ctx context.Context, id string) error

	// SearchVector finds the k nearest samples to the query vector by
	// cosine similarity. Samples without a stored vector are skipped.
	SearchVector(ctx context.Context, vector []float32, k int) ([]types.ScoredMatch, error)

	// Count returns the number of ingested samples.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying database handle.
	Close() error
}
