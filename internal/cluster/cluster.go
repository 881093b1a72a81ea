// Package cluster groups top-K ranked neighbors into similarity clusters
// with greedy single-linkage absorption. Greedy over the small ranked set
// keeps the worst case at O(K^2), acceptable because K is bounded by the
// router's top_k.
package cluster

import (
	"fmt"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// SimilarityFn scores a pair of samples in [0,1] (cosine may go negative
// for opposed vectors; callers treat anything below threshold the same).
type SimilarityFn func(a, b *types.Sample) float64

// Extract partitions ranked results into clusters. Results are walked in
// rank order; each unclustered result seeds a new cluster and absorbs every
// remaining unclustered result whose similarity to the seed exceeds the
// threshold. Identical inputs and threshold always produce identical
// partitions, which keeps reports reproducible.
//
// Results whose sample is missing from the lookup map are skipped; the
// store and the indexes may briefly disagree during ingestion.
func Extract(results []types.RankedResult, samples map[string]*types.Sample, sim SimilarityFn, threshold float64) []types.Cluster {
	clustered := make(map[string]bool, len(results))
	var clusters []types.Cluster

	for i, seed := range results {
		if clustered[seed.SampleID] {
			continue
		}
		seedSample, ok := samples[seed.SampleID]
		if !ok {
			continue
		}

		clustered[seed.SampleID] = true
		members := []string{seed.SampleID}

		for _, other := range results[i+1:] {
			if clustered[other.SampleID] {
				continue
			}
			otherSample, ok := samples[other.SampleID]
			if !ok {
				continue
			}
			if sim(seedSample, otherSample) > threshold {
				clustered[other.SampleID] = true
				members = append(members, other.SampleID)
			}
		}

		clusters = append(clusters, types.Cluster{
			ID: fmt.Sprintf("c%d", len(clusters)+1),
			// Members are appended in rank order, so the seed is the
			// highest-fused-score member.
			MemberIDs:      members,
			CentroidID:     seed.SampleID,
			MeanSimilarity: meanPairwiseSimilarity(members, samples, sim),
		})
	}

	return clusters
}

// meanPairwiseSimilarity averages sim over all member pairs. A singleton
// is maximally self-similar by convention.
func meanPairwiseSimilarity(members []string, samples map[string]*types.Sample, sim SimilarityFn) float64 {
	if len(members) < 2 {
		return 1.0
	}

	var sum float64
	var pairs int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += sim(samples[members[i]], samples[members[j]])
			pairs++
		}
	}

	return sum / float64(pairs)
}
