package cluster

import (
	"math"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// Similarity compares two samples in the embedding space when both carry
// vectors, and falls back to token Jaccard overlap for sparse-only matches
// that were never embedded.
func Similarity(a, b *types.Sample) float64 {
	if len(a.Vector) > 0 && len(b.Vector) > 0 && len(a.Vector) == len(b.Vector) {
		return cosine(a.Vector, b.Vector)
	}
	return jaccard(a.Tokens, b.Tokens)
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// jaccard computes token set overlap, |A intersect B| / |A union B|.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}

	var intersection int
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
