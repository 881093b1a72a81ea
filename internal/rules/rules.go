// Package rules derives candidate detection patterns from a cluster of
// similar samples. Patterns are common substrings found by pairwise
// longest-common-substring scanning, bounded below by a configurable
// minimum length that filters trivial low-specificity fragments.
package rules

import (
	"sort"
	"strings"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// Synthesizer extracts rule drafts from clusters.
type Synthesizer struct {
	minPatternLength int
	maxPatterns      int
}

// NewSynthesizer bounds extraction by minimum pattern length and the
// number of patterns retained per draft.
func NewSynthesizer(minPatternLength, maxPatterns int) *Synthesizer {
	if minPatternLength <= 0 {
		minPatternLength = 8
	}
	if maxPatterns <= 0 {
		maxPatterns = 10
	}
	return &Synthesizer{
		minPatternLength: minPatternLength,
		maxPatterns:      maxPatterns,
	}
}

// Synthesize builds a RuleDraft from one cluster. Candidate patterns come
// from pairwise longest common substrings over member texts; only patterns
// present in at least two distinct members survive, except for singleton
// clusters whose draft is flagged low-confidence. Confidence is member
// coverage fraction times mean intra-cluster similarity.
//
// Returns ErrNoPatternFound when no candidate meets the minimum length.
// Callers treat that as "cluster yields no rule," never a pipeline abort.
func (s *Synthesizer) Synthesize(c *types.Cluster, samples map[string]*types.Sample) (*types.RuleDraft, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	members := make([]*types.Sample, 0, len(c.MemberIDs))
	for _, id := range c.MemberIDs {
		if sample, ok := samples[id]; ok {
			members = append(members, sample)
		}
	}
	if len(members) == 0 {
		return nil, types.ErrNoPatternFound
	}

	if len(members) == 1 {
		return s.singletonDraft(c, members[0])
	}

	candidates := s.collectCandidates(members)
	if len(candidates) == 0 {
		return nil, types.ErrNoPatternFound
	}

	patterns, coverage := s.selectPatterns(candidates, members)
	if len(patterns) == 0 {
		return nil, types.ErrNoPatternFound
	}

	return &types.RuleDraft{
		ClusterID:  c.ID,
		Patterns:   patterns,
		Confidence: coverage * c.MeanSimilarity,
		Family:     dominantFamily(members),
	}, nil
}

// singletonDraft falls back to the sample's longest tokens as patterns.
// A rule from a single sample has no cross-member support, so the draft
// is always flagged low-confidence.
func (s *Synthesizer) singletonDraft(c *types.Cluster, sample *types.Sample) (*types.RuleDraft, error) {
	var patterns []string
	for _, tok := range sample.Tokens {
		if len(tok) >= s.minPatternLength {
			patterns = append(patterns, tok)
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})
	if len(patterns) > s.maxPatterns {
		patterns = patterns[:s.maxPatterns]
	}

	if len(patterns) == 0 {
		return nil, types.ErrNoPatternFound
	}

	return &types.RuleDraft{
		ClusterID:     c.ID,
		Patterns:      patterns,
		Confidence:    c.MeanSimilarity,
		Family:        sample.Family,
		LowConfidence: true,
	}, nil
}

// collectCandidates gathers longest common substrings for every member
// pair, deduplicated.
func (s *Synthesizer) collectCandidates(members []*types.Sample) map[string]struct{} {
	candidates := make(map[string]struct{})
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			lcs := longestCommonSubstring(members[i].Text, members[j].Text)
			if len(lcs) >= s.minPatternLength {
				candidates[lcs] = struct{}{}
			}
		}
	}
	return candidates
}

// selectPatterns keeps candidates occurring in at least two distinct
// members, ordered by member support then length, capped at maxPatterns.
// Returns the patterns and the coverage fraction of the best-supported one.
func (s *Synthesizer) selectPatterns(candidates map[string]struct{}, members []*types.Sample) ([]string, float64) {
	type scored struct {
		pattern string
		support int
	}

	var kept []scored
	for pattern := range candidates {
		support := 0
		for _, m := range members {
			if strings.Contains(m.Text, pattern) {
				support++
			}
		}
		if support >= 2 {
			kept = append(kept, scored{pattern: pattern, support: support})
		}
	}
	if len(kept) == 0 {
		return nil, 0
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].support != kept[j].support {
			return kept[i].support > kept[j].support
		}
		if len(kept[i].pattern) != len(kept[j].pattern) {
			return len(kept[i].pattern) > len(kept[j].pattern)
		}
		return kept[i].pattern < kept[j].pattern
	})

	if len(kept) > s.maxPatterns {
		kept = kept[:s.maxPatterns]
	}

	patterns := make([]string, len(kept))
	for i, k := range kept {
		patterns[i] = k.pattern
	}

	coverage := float64(kept[0].support) / float64(len(members))
	return patterns, coverage
}

// dominantFamily picks the most frequent non-empty family label, ties
// broken alphabetically.
func dominantFamily(members []*types.Sample) string {
	counts := make(map[string]int)
	for _, m := range members {
		if m.Family != "" {
			counts[m.Family]++
		}
	}

	var best string
	var bestCount int
	for family, count := range counts {
		if count > bestCount || (count == bestCount && family < best) {
			best = family
			bestCount = count
		}
	}

	return best
}

// longestCommonSubstring finds the longest contiguous substring shared by
// a and b with standard dynamic programming, O(len(a)*len(b)) time and
// O(len(b)) space. The leftmost longest match wins ties.
func longestCommonSubstring(a, b string) string {
	if len(a) == 0 || len(b) == 0 {
		return ""
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	bestLen := 0
	bestEnd := 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestLen {
					bestLen = curr[j]
					bestEnd = i
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return a[bestEnd-bestLen : bestEnd]
}
