package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/malrag-mcp/internal/corpus"
	"github.com/dshills/malrag-mcp/internal/embedder"
	"github.com/dshills/malrag-mcp/pkg/types"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			"api calls survive as single tokens",
			"CreateRemoteThread(hProc, NULL); WriteProcessMemory(h, addr)",
			[]string{"createremotethread", "hproc", "null", "writeprocessmemory", "addr"},
		},
		{
			"short fragments dropped",
			"a of to rc4 xor",
			[]string{"rc4", "xor"},
		},
		{
			"duplicates collapsed",
			"VirtualAlloc VirtualAlloc virtualalloc",
			[]string{"virtualalloc"},
		},
		{
			"underscores kept",
			"NtUnmapViewOfSection reg_key_run",
			[]string{"ntunmapviewofsection", "reg_key_run"},
		},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.text))
		})
	}
}

func sparseSample(id, text, family string) *types.Sample {
	return &types.Sample{
		ID:         id,
		Text:       text,
		Tokens:     Tokenize(text),
		Family:     family,
		IngestedAt: time.Now(),
	}
}

func TestSparseIndexSearch(t *testing.T) {
	idx, err := NewSparseIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.IndexBatch([]*types.Sample{
		sparseSample("inj1", "CreateRemoteThread WriteProcessMemory VirtualAllocEx injection", "emotet"),
		sparseSample("net1", "socket connect send recv beacon http", "trickbot"),
		sparseSample("enc1", "CryptEncrypt AES key schedule ransom note", "lockbit"),
	}))

	matches, err := idx.Search(context.Background(), "WriteProcessMemory injection", 10)
	require.NoError(t, err)

	require.NotEmpty(t, matches)
	assert.Equal(t, "inj1", matches[0].SampleID)
	assert.Equal(t, types.IndexSparse, matches[0].Kind)
	assert.Greater(t, matches[0].Score, 0.0)
}

func TestSparseIndexSearchNoHits(t *testing.T) {
	idx, err := NewSparseIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Index(sparseSample("s1", "CryptEncrypt ransom", "lockbit")))

	matches, err := idx.Search(context.Background(), "zzzzz qqqqq", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSparseIndexDelete(t *testing.T) {
	idx, err := NewSparseIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Index(sparseSample("s1", "beacon http exfil", "trickbot")))
	require.NoError(t, idx.Delete("s1"))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSparseIndexRejectsInvalidSample(t *testing.T) {
	idx, err := NewSparseIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	assert.Error(t, idx.Index(&types.Sample{ID: "", Text: "x"}))
}

func TestSparseIndexPersistent(t *testing.T) {
	path := t.TempDir() + "/sparse.bleve"

	idx, err := NewSparseIndex(path)
	require.NoError(t, err)

	require.NoError(t, idx.Index(sparseSample("s1", "mutex CreateMutexA persistence", "emotet")))
	require.NoError(t, idx.Close())

	reopened, err := NewSparseIndex(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

type failingEmbedder struct{}

func (failingEmbedder) GenerateEmbedding(context.Context, embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return nil, embedder.ErrProviderFailed
}

func (failingEmbedder) GenerateBatch(context.Context, embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	return nil, embedder.ErrProviderFailed
}

func (failingEmbedder) Dimension() int   { return 3 }
func (failingEmbedder) Provider() string { return "failing" }
func (failingEmbedder) Close() error     { return nil }

func TestDenseIndexSearch(t *testing.T) {
	store, err := corpus.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	dense := NewDenseIndex(emb, store)
	ctx := context.Background()

	vec, err := dense.Embed(ctx, "CreateRemoteThread WriteProcessMemory")
	require.NoError(t, err)

	require.NoError(t, store.PutSample(ctx, &types.Sample{
		ID:         "inj1",
		Text:       "CreateRemoteThread WriteProcessMemory",
		Vector:     vec,
		IngestedAt: time.Now(),
	}))

	matches, err := dense.Search(ctx, "CreateRemoteThread WriteProcessMemory", 5)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "inj1", matches[0].SampleID)
	assert.Equal(t, types.IndexDense, matches[0].Kind)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestDenseIndexEmbedderFailure(t *testing.T) {
	store, err := corpus.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	dense := NewDenseIndex(failingEmbedder{}, store)

	_, err = dense.Search(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}
