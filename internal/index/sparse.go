package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// SparseIndex is a bleve keyword index over sample text and metadata.
// Scores are BM25 relevance scores, unnormalized; the ranker min-max
// normalizes per result set before fusion.
type SparseIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// NewSparseIndex opens a keyword index. An empty path builds an in-memory
// index; otherwise a scorch index is created or reopened at path.
func NewSparseIndex(path string) (*SparseIndex, error) {
	indexMapping := buildSampleMapping()

	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, fmt.Errorf("%w: create in-memory index: %v", types.ErrIndexUnavailable, err)
		}
		return &SparseIndex{index: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create index directory: %v", types.ErrIndexUnavailable, err)
	}

	idx, err := bleve.NewUsing(path, indexMapping, scorch.Name, scorch.Name, nil)
	if err != nil {
		idx, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: open index at %s: %v", types.ErrIndexUnavailable, path, err)
		}
	}

	return &SparseIndex{index: idx, path: path}, nil
}

func buildSampleMapping() mapping.IndexMapping {
	sampleMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	sampleMapping.AddFieldMappingsAt("text", textField)

	tokensField := bleve.NewTextFieldMapping()
	sampleMapping.AddFieldMappingsAt("tokens", tokensField)

	familyField := bleve.NewTextFieldMapping()
	sampleMapping.AddFieldMappingsAt("family", familyField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", sampleMapping)

	return indexMapping
}

// Index adds or replaces one sample in the keyword index.
func (s *SparseIndex) Index(sample *types.Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := sampleDocument(sample)
	if err := s.index.Index(sample.ID, doc); err != nil {
		return fmt.Errorf("%w: index sample %s: %v", types.ErrIndexUnavailable, sample.ID, err)
	}

	return nil
}

// IndexBatch adds samples in a single bleve batch.
func (s *SparseIndex) IndexBatch(samples []*types.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return err
		}
		if err := batch.Index(sample.ID, sampleDocument(sample)); err != nil {
			return fmt.Errorf("%w: batch index sample %s: %v", types.ErrIndexUnavailable, sample.ID, err)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("%w: apply batch: %v", types.ErrIndexUnavailable, err)
	}

	return nil
}

func sampleDocument(sample *types.Sample) map[string]interface{} {
	return map[string]interface{}{
		"text":   sample.Text,
		"tokens": strings.Join(sample.Tokens, " "),
		"family": sample.Family,
	}
}

// Delete removes a sample from the keyword index.
func (s *SparseIndex) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Delete(id); err != nil {
		return fmt.Errorf("%w: delete sample %s: %v", types.ErrIndexUnavailable, id, err)
	}

	return nil
}

// Search runs a keyword query and returns up to k matches tagged with
// the sparse index kind.
func (s *SparseIndex) Search(ctx context.Context, queryText string, k int) ([]types.ScoredMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 10
	}

	query := bleve.NewMatchQuery(queryText)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %v", types.ErrIndexUnavailable, err)
	}

	matches := make([]types.ScoredMatch, 0, len(result.Hits))
	for _, hit := range result.Hits {
		matches = append(matches, types.ScoredMatch{
			SampleID: hit.ID,
			Score:    hit.Score,
			Kind:     types.IndexSparse,
		})
	}

	return matches, nil
}

// Count returns the number of indexed samples.
func (s *SparseIndex) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count, err := s.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: doc count: %v", types.ErrIndexUnavailable, err)
	}

	return count, nil
}

// Close releases index resources.
func (s *SparseIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}

	return nil
}
