package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/malrag-mcp/pkg/types"
)

func clusterOf(meanSim float64, ids ...string) *types.Cluster {
	return &types.Cluster{
		ID:             "c1",
		MemberIDs:      ids,
		CentroidID:     ids[0],
		MeanSimilarity: meanSim,
	}
}

func sampleMap(samples ...*types.Sample) map[string]*types.Sample {
	m := make(map[string]*types.Sample, len(samples))
	for _, s := range samples {
		m[s.ID] = s
	}
	return m
}

func TestSynthesizeSharedByteSequence(t *testing.T) {
	// Three members all carrying the 8-char sequence "4D5A9000"
	samples := sampleMap(
		&types.Sample{ID: "s1", Text: "header 4D5A9000 loader stub alpha", Family: "emotet"},
		&types.Sample{ID: "s2", Text: "prefix 4D5A9000 loader stub beta", Family: "emotet"},
		&types.Sample{ID: "s3", Text: "other 4D5A9000 loader stub gamma", Family: "trickbot"},
	)
	c := clusterOf(0.85, "s1", "s2", "s3")

	syn := NewSynthesizer(8, 10)
	draft, err := syn.Synthesize(c, samples)
	require.NoError(t, err)

	found := false
	for _, p := range draft.Patterns {
		if strings.Contains(p, "4D5A9000") {
			found = true
		}
	}
	assert.True(t, found, "expected shared sequence in patterns: %v", draft.Patterns)

	// Full coverage: every member contains the shared sequence
	assert.Greater(t, draft.Confidence, 0.0)
	assert.InDelta(t, 1.0*0.85, draft.Confidence, 1e-9)
	assert.False(t, draft.LowConfidence)
	assert.Equal(t, "emotet", draft.Family)
}

func TestSynthesizePatternsRequireTwoMembers(t *testing.T) {
	samples := sampleMap(
		&types.Sample{ID: "s1", Text: "CreateRemoteThread WriteProcessMemory shared"},
		&types.Sample{ID: "s2", Text: "CreateRemoteThread WriteProcessMemory shared"},
		&types.Sample{ID: "s3", Text: "completely unrelated content here zzz"},
	)
	c := clusterOf(0.6, "s1", "s2", "s3")

	draft, err := NewSynthesizer(8, 10).Synthesize(c, samples)
	require.NoError(t, err)

	for _, p := range draft.Patterns {
		support := 0
		for _, s := range samples {
			if strings.Contains(s.Text, p) {
				support++
			}
		}
		assert.GreaterOrEqual(t, support, 2, "pattern %q supported by fewer than 2 members", p)
	}
}

func TestSynthesizeNoPatternFound(t *testing.T) {
	// No common substring of length >= 8 between the members
	samples := sampleMap(
		&types.Sample{ID: "s1", Text: "aaaa bbb"},
		&types.Sample{ID: "s2", Text: "cccc ddd"},
	)
	c := clusterOf(0.5, "s1", "s2")

	_, err := NewSynthesizer(8, 10).Synthesize(c, samples)
	assert.ErrorIs(t, err, types.ErrNoPatternFound)
}

func TestSynthesizeMinLengthBounds(t *testing.T) {
	samples := sampleMap(
		&types.Sample{ID: "s1", Text: "xx shared yy"},
		&types.Sample{ID: "s2", Text: "zz shared ww"},
	)
	c := clusterOf(0.9, "s1", "s2")

	// " shared " is 8 chars; a low bound admits it, a high bound rejects
	low, err := NewSynthesizer(4, 10).Synthesize(c, samples)
	require.NoError(t, err)
	assert.NotEmpty(t, low.Patterns)

	_, err = NewSynthesizer(20, 10).Synthesize(c, samples)
	assert.ErrorIs(t, err, types.ErrNoPatternFound)
}

func TestSynthesizeSingletonLowConfidence(t *testing.T) {
	samples := sampleMap(&types.Sample{
		ID:     "s1",
		Text:   "CreateRemoteThread",
		Tokens: []string{"createremotethread", "writeprocessmemory", "xor"},
		Family: "emotet",
	})
	c := clusterOf(1.0, "s1")

	draft, err := NewSynthesizer(8, 10).Synthesize(c, samples)
	require.NoError(t, err)

	assert.True(t, draft.LowConfidence)
	assert.Equal(t, "emotet", draft.Family)
	// Only tokens meeting the minimum length survive
	assert.NotContains(t, draft.Patterns, "xor")
	assert.Contains(t, draft.Patterns, "createremotethread")
}

func TestSynthesizeSingletonNoLongTokens(t *testing.T) {
	samples := sampleMap(&types.Sample{ID: "s1", Text: "x", Tokens: []string{"abc"}})
	c := clusterOf(1.0, "s1")

	_, err := NewSynthesizer(8, 10).Synthesize(c, samples)
	assert.ErrorIs(t, err, types.ErrNoPatternFound)
}

func TestSynthesizeCapsPatternCount(t *testing.T) {
	// Identical long texts generate one giant LCS; craft several distinct
	// shared fragments instead
	base := "AAAAAAAA11 BBBBBBBB22 CCCCCCCC33 DDDDDDDD44"
	samples := sampleMap(
		&types.Sample{ID: "s1", Text: base + " tailone"},
		&types.Sample{ID: "s2", Text: base + " tailtwo"},
	)
	c := clusterOf(0.8, "s1", "s2")

	draft, err := NewSynthesizer(8, 2).Synthesize(c, samples)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(draft.Patterns), 2)
}

func TestLongestCommonSubstring(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected string
	}{
		{"shared middle", "xx4D5A9000yy", "zz4D5A9000ww", "4D5A9000"},
		{"identical", "abcdef", "abcdef", "abcdef"},
		{"no overlap", "abc", "xyz", ""},
		{"empty", "", "abc", ""},
		{"prefix", "malware", "malformed", "mal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, longestCommonSubstring(tt.a, tt.b))
		})
	}
}

func TestRenderYARA(t *testing.T) {
	draft := &types.RuleDraft{
		ClusterID:  "c1",
		Patterns:   []string{"4D5A9000", "CreateRemoteThread"},
		Confidence: 0.85,
		Family:     "emotet",
	}

	out := RenderYARA(draft, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "rule emotet_")
	assert.Contains(t, out, `description = "Auto-generated rule for emotet"`)
	assert.Contains(t, out, `date = "2026-08-23"`)
	assert.Contains(t, out, `$s1 = "4D5A9000" ascii wide`)
	assert.Contains(t, out, `$s2 = "CreateRemoteThread" ascii wide`)
	assert.Contains(t, out, "uint16(0) == 0x5A4D")
	assert.Contains(t, out, "2 of ($s*)")
	assert.NotContains(t, out, "low_confidence")
}

func TestRenderYARALowConfidence(t *testing.T) {
	draft := &types.RuleDraft{
		ClusterID:     "c2",
		Patterns:      []string{"mutexname"},
		Confidence:    0.3,
		LowConfidence: true,
	}

	out := RenderYARA(draft, time.Now())

	assert.Contains(t, out, "rule unknown_")
	assert.Contains(t, out, `low_confidence = "true"`)
	assert.Contains(t, out, "1 of ($s*)")
}

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "agent_tesla", sanitizeIdentifier("agent tesla"))
	assert.Equal(t, "apt28_x", sanitizeIdentifier("apt28-x"))
	// Identifiers cannot start with a digit
	assert.Equal(t, "_9002", sanitizeIdentifier("9002"))
	assert.Equal(t, "_", sanitizeIdentifier(""))
}

func TestRenderYARADigitLeadingFamily(t *testing.T) {
	draft := &types.RuleDraft{
		ClusterID:  "c3",
		Patterns:   []string{"4D5A9000"},
		Confidence: 0.6,
		Family:     "9002",
	}

	out := RenderYARA(draft, time.Now())

	assert.Contains(t, out, "rule _9002_")
	assert.NotContains(t, out, "rule 9002")
}
