package types

import (
	"crypto/sha256"
	"errors"
	"time"
)

// ContentKind tags an analysis request with the shape of its content.
type ContentKind string

const (
	// KindSourceCode is a source snippet (script, C, assembly listing, etc.)
	KindSourceCode ContentKind = "source-code"
	// KindBinaryFeatures is a feature set derived from a binary (imports, strings, sections)
	KindBinaryFeatures ContentKind = "binary-features"
	// KindFreeText is a behavioral description in natural language
	KindFreeText ContentKind = "free-text"
)

// IsValid checks whether the content kind is recognized by the router
func (k ContentKind) IsValid() bool {
	switch k {
	case KindSourceCode, KindBinaryFeatures, KindFreeText:
		return true
	default:
		return false
	}
}

// IndexKind identifies which index produced a ScoredMatch.
type IndexKind string

const (
	IndexSparse IndexKind = "sparse"
	IndexDense  IndexKind = "dense"
)

// Sample is one ingested malware artifact. Immutable once ingested.
type Sample struct {
	ID         string
	Text       string
	Tokens     []string
	Vector     []float32 // owned by the dense index; nil until embedded
	Family     string
	SourcePath string
	IngestedAt time.Time
}

// ContentHash computes the SHA-256 hash of the sample text for deduplication
func (s *Sample) ContentHash() [32]byte {
	return sha256.Sum256([]byte(s.Text))
}

// Validate checks that the sample carries the fields ingestion must supply
func (s *Sample) Validate() error {
	if s.ID == "" {
		return errors.New("sample ID is required")
	}
	if s.Text == "" {
		return errors.New("sample text cannot be empty")
	}
	return nil
}

// ScoredMatch is the result of a single index lookup. The raw score is on
// the originating index's own scale; only the ranker normalizes it.
type ScoredMatch struct {
	SampleID string
	Score    float64
	Kind     IndexKind
}

// RankedResult is one entry of the hybrid ranker's output. Ranks are
// 1-based and strictly increasing by fused score descending; ties are
// broken by sample ID ascending.
type RankedResult struct {
	SampleID string
	Score    float64 // fused, normalized to [0,1]
	Rank     int
}

// Validate checks ranker output invariants for a single result
func (r *RankedResult) Validate() error {
	if r.SampleID == "" {
		return ErrInvalidSampleID
	}
	if r.Rank < 1 {
		return ErrInvalidRank
	}
	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}
