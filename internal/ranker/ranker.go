// Package ranker fuses sparse and dense retrieval results into one ranked
// list. Each set's raw scores are min-max normalized independently before
// weighting, which guards against the differing score scales of the two
// backends. Normalize-then-weight is used instead of reciprocal-rank fusion
// because raw similarity magnitudes carry confidence signal that pure rank
// fusion would discard.
package ranker

import (
	"sort"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// Weights holds the dense/sparse mix selected by the router.
type Weights struct {
	Dense  float64
	Sparse float64
}

// Rank merges the two result sets into a ranked list. A sample present in
// only one set contributes 0 for the missing component. Both sets empty is
// a valid "no similar samples" outcome and yields an empty list, not an
// error.
func Rank(sparse, dense []types.ScoredMatch, w Weights) []types.RankedResult {
	if len(sparse) == 0 && len(dense) == 0 {
		return []types.RankedResult{}
	}

	sparseNorm := normalize(sparse)
	denseNorm := normalize(dense)

	ids := make(map[string]struct{}, len(sparse)+len(dense))
	for id := range sparseNorm {
		ids[id] = struct{}{}
	}
	for id := range denseNorm {
		ids[id] = struct{}{}
	}

	results := make([]types.RankedResult, 0, len(ids))
	for id := range ids {
		fused := w.Dense*denseNorm[id] + w.Sparse*sparseNorm[id]
		results = append(results, types.RankedResult{
			SampleID: id,
			Score:    fused,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SampleID < results[j].SampleID
	})

	for i := range results {
		results[i].Rank = i + 1
	}

	return results
}

// normalize min-max scales one result set's raw scores to [0,1]. The range
// floor is clamped at zero so the weakest hit in a set keeps nonzero mass
// instead of collapsing to 0 and losing its confidence signal. When every
// score in the set is equal, all normalize to 1.0 rather than dividing by
// zero.
func normalize(matches []types.ScoredMatch) map[string]float64 {
	norm := make(map[string]float64, len(matches))
	if len(matches) == 0 {
		return norm
	}

	minScore := matches[0].Score
	maxScore := matches[0].Score
	for _, m := range matches[1:] {
		if m.Score < minScore {
			minScore = m.Score
		}
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}

	if minScore > 0 {
		minScore = 0
	}

	if maxScore == minScore {
		for _, m := range matches {
			norm[m.SampleID] = 1.0
		}
		return norm
	}

	for _, m := range matches {
		norm[m.SampleID] = (m.Score - minScore) / (maxScore - minScore)
	}

	return norm
}
