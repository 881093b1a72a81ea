package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/malrag-mcp/internal/corpus"
	"github.com/dshills/malrag-mcp/internal/embedder"
	"github.com/dshills/malrag-mcp/internal/index"
)

func TestChunkCodeFunctionBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	b.WriteString("void inject(HANDLE h) {\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "body %d\n", i)
	}

	chunks := ChunkCode(b.String())

	require.Len(t, chunks, 2)
	// The function definition closes the first chunk
	assert.Contains(t, chunks[0].Text, "void inject")
	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Contains(t, chunks[1].Text, "body 0")
}

func TestChunkCodeHardCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "mov eax, %d\n", i)
	}

	chunks := ChunkCode(b.String())

	require.GreaterOrEqual(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(strings.Split(c.Text, "\n")), maxChunkLines)
	}
}

func TestChunkCodeShortFile(t *testing.T) {
	chunks := ChunkCode("int x = 1;\nint y = 2;")

	require.Len(t, chunks, 1)
	assert.Equal(t, "int x = 1;\nint y = 2;", chunks[0].Text)
}

func TestChunkCodeEmpty(t *testing.T) {
	assert.Empty(t, ChunkCode(""))
	assert.Empty(t, ChunkCode("\n\n\n"))
}

func TestChunkText(t *testing.T) {
	content := "First paragraph about emotet.\n\nSecond paragraph.\n\n\n\nThird."

	chunks := ChunkText(content)

	require.Len(t, chunks, 3)
	assert.Equal(t, "First paragraph about emotet.", chunks[0].Text)
	assert.Equal(t, "Third.", chunks[2].Text)
}

func setupIngester(t *testing.T) (*Ingester, corpus.Store, *index.SparseIndex) {
	t.Helper()

	store, err := corpus.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sparse, err := index.NewSparseIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sparse.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	return New(store, sparse, emb, nil, 2), store, sparse
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFile(t *testing.T) {
	ing, store, sparse := setupIngester(t)
	dir := t.TempDir()

	path := writeFile(t, dir, "2019/emotet/loader.c",
		"CreateRemoteThread(h, NULL, 0, mem, NULL, 0, NULL);\nWriteProcessMemory(h, mem, p, n, NULL);")

	written, dups, err := ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 0, dups)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sparseCount, err := sparse.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sparseCount)

	// The stored sample carries family, vector, and feature tokens
	samples, err := store.ListSamples(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "emotet", samples[0].Family)
	assert.NotEmpty(t, samples[0].Vector)
	assert.Contains(t, samples[0].Tokens, "createremotethread")
	assert.Contains(t, samples[0].SourcePath, "loader.c:")
}

func TestIngestFileSkipsUnknownExtension(t *testing.T) {
	ing, _, _ := setupIngester(t)
	dir := t.TempDir()

	path := writeFile(t, dir, "sample.bin", "\x00\x01\x02")

	written, _, err := ing.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func TestIngestFileDeduplicates(t *testing.T) {
	ing, _, _ := setupIngester(t)
	dir := t.TempDir()

	first := writeFile(t, dir, "a.c", "CreateMutexA(NULL, TRUE, \"mutex\");")
	second := writeFile(t, dir, "b.c", "CreateMutexA(NULL, TRUE, \"mutex\");")

	written, _, err := ing.IngestFile(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	written, dups, err := ing.IngestFile(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Equal(t, 1, dups)
}

func TestIngestDirectory(t *testing.T) {
	ing, store, _ := setupIngester(t)
	dir := t.TempDir()

	writeFile(t, dir, "2019/emotet/loader.c", "CreateRemoteThread(h);")
	writeFile(t, dir, "notes/emotet.md", "Loader observed in the wild.\n\nDrops a payload.")
	writeFile(t, dir, "ignore.bin", "\x00")
	writeFile(t, dir, ".git/config", "[core]")

	stats, err := ing.IngestDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 3, stats.ChunksIngested)
	assert.Empty(t, stats.Errors)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngestDirectoryMissingRoot(t *testing.T) {
	ing, _, _ := setupIngester(t)

	_, err := ing.IngestDirectory(context.Background(), "/nonexistent/corpus")
	assert.Error(t, err)
}
