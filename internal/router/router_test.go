package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/malrag-mcp/internal/config"
	"github.com/dshills/malrag-mcp/pkg/types"
)

func testRouter() *Router {
	return New(config.RetrievalConfig{
		TopK:             20,
		ClusterThreshold: 0.72,
		MinSparseHits:    3,
	})
}

func TestRouteByContentKind(t *testing.T) {
	r := testRouter()

	tests := []struct {
		name       string
		kind       types.ContentKind
		wantDense  float64
		wantSparse float64
		wantMinHit int
	}{
		{"source code favors sparse", types.KindSourceCode, 0.3, 0.7, 3},
		{"binary features favor dense", types.KindBinaryFeatures, 0.8, 0.2, 0},
		{"free text balanced", types.KindFreeText, 0.5, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Route(Request{Kind: tt.kind, Content: "x"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantDense, d.DenseWeight)
			assert.Equal(t, tt.wantSparse, d.SparseWeight)
			assert.Equal(t, tt.wantMinHit, d.MinSparseHits)
			assert.Equal(t, 20, d.TopK)
			assert.Equal(t, 0.72, d.ClusterThreshold)
		})
	}
}

func TestRouteRejectsUnknownKind(t *testing.T) {
	r := testRouter()

	_, err := r.Route(Request{Kind: "disassembly", Content: "x"})
	assert.ErrorIs(t, err, types.ErrUnsupportedContentKind)

	_, err = r.Route(Request{Kind: "", Content: "x"})
	assert.ErrorIs(t, err, types.ErrUnsupportedContentKind)
}

func TestFamilyHint(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"ransomware", "CryptEncrypt the files then drop ransom note", "ransomware"},
		{"locked extension", "rename to victim.docx.locked", "ransomware"},
		{"rats", "SetWindowsHookEx keylogger and screenshot capture", "rats"},
		{"rootkits", "hook the SSDT from a kernel driver", "rootkits"},
		{"cryptominers", "connect to stratum+tcp pool for monero", "cryptominers"},
		{"botnets", "IRC channel receives DDoS command", "botnets"},
		{"infostealers", "dump browser cookie and wallet files", "infostealers"},
		{"no match", "printf hello world", "general"},
		{"case insensitive", "RANSOM demand", "ransomware"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FamilyHint(tt.content))
		})
	}
}

func TestFamilyHintPrecedence(t *testing.T) {
	// Content matching several categories resolves to the first checked
	hint := FamilyHint("encrypt files and steal passwords via keylog")
	assert.Equal(t, "ransomware", hint)
}

func TestFallbackWeights(t *testing.T) {
	r := testRouter()

	d, err := r.Route(Request{Kind: types.KindSourceCode, Content: "x"})
	require.NoError(t, err)

	dense, sparse := d.FallbackWeights()
	assert.Equal(t, 0.7, dense)
	assert.Equal(t, 0.3, sparse)
}
