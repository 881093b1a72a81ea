// Package ingest walks a corpus directory, chunks each file, embeds the
// chunks, and writes them to the sample store and keyword index. Files are
// processed by a bounded worker pool; a failed file is recorded and skipped
// rather than aborting the run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/malrag-mcp/internal/corpus"
	"github.com/dshills/malrag-mcp/internal/embedder"
	"github.com/dshills/malrag-mcp/internal/features"
	"github.com/dshills/malrag-mcp/internal/index"
	"github.com/dshills/malrag-mcp/pkg/types"
)

// codeExtensions are source files chunked along function boundaries.
var codeExtensions = map[string]bool{
	".c": true, ".cpp": true, ".h": true, ".hpp": true, ".py": true,
	".asm": true, ".s": true, ".vbs": true, ".ps1": true, ".bat": true,
	".cmd": true, ".js": true,
}

// textExtensions are prose files chunked by paragraph.
var textExtensions = map[string]bool{".txt": true, ".md": true}

// Stats summarizes one ingestion run.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	ChunksIngested int
	Duplicates     int
	Errors         []string
}

// Ingester writes corpus samples into the store and keyword index.
type Ingester struct {
	store    corpus.Store
	sparse   *index.SparseIndex
	embedder embedder.Embedder
	logger   *slog.Logger
	workers  int
}

// New creates an Ingester with a bounded worker pool.
func New(store corpus.Store, sparse *index.SparseIndex, emb embedder.Embedder, logger *slog.Logger, workers int) *Ingester {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		store:    store,
		sparse:   sparse,
		embedder: emb,
		logger:   logger,
		workers:  workers,
	}
}

// IngestDirectory walks root and ingests every recognized file.
func (ing *Ingester) IngestDirectory(ctx context.Context, root string) (*Stats, error) {
	files, err := collectFiles(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	stats := &Stats{}
	var processed, skipped, failed, chunks, duplicates int32
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.workers)

	for _, path := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			n, dups, err := ing.IngestFile(gctx, path)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				ing.logger.Warn("failed to ingest file", "path", path, "error", err)
				return nil
			}

			if n == 0 {
				atomic.AddInt32(&skipped, 1)
				return nil
			}

			atomic.AddInt32(&processed, 1)
			atomic.AddInt32(&chunks, int32(n))
			atomic.AddInt32(&duplicates, int32(dups))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesProcessed = int(processed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksIngested = int(chunks)
	stats.Duplicates = int(duplicates)

	ing.logger.Info("ingestion complete",
		"files", stats.FilesProcessed,
		"chunks", stats.ChunksIngested,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"duplicates", stats.Duplicates)

	return stats, nil
}

// IngestFile chunks and stores one file, returning the number of chunks
// written and the number skipped as duplicates. Unrecognized extensions
// yield (0, 0, nil).
func (ing *Ingester) IngestFile(ctx context.Context, path string) (written, duplicates int, err error) {
	ext := strings.ToLower(filepath.Ext(path))

	var chunker func(string) []Chunk
	switch {
	case codeExtensions[ext]:
		chunker = ChunkCode
	case textExtensions[ext]:
		chunker = ChunkText
	default:
		return 0, 0, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read file: %w", err)
	}

	family := features.FamilyFromPath(path)

	for _, chunk := range chunker(string(content)) {
		sample := ing.buildSample(ctx, chunk, path, family)

		if err := ing.store.PutSample(ctx, sample); err != nil {
			if errors.Is(err, corpus.ErrAlreadyExists) {
				duplicates++
				continue
			}
			return written, duplicates, fmt.Errorf("store chunk: %w", err)
		}

		if err := ing.sparse.Index(sample); err != nil {
			return written, duplicates, fmt.Errorf("index chunk: %w", err)
		}

		written++
	}

	return written, duplicates, nil
}

// buildSample assembles one Sample from a chunk. An embedding failure
// leaves the vector nil; the sample stays reachable through keyword search
// and token-overlap clustering.
func (ing *Ingester) buildSample(ctx context.Context, chunk Chunk, path, family string) *types.Sample {
	tokens := index.Tokenize(chunk.Text)
	if f := features.Extract(chunk.Text); !f.Empty() {
		tokens = mergeTokens(tokens, f.Tokens())
	}

	var vector []float32
	if ing.embedder != nil {
		emb, err := ing.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: chunk.Text})
		if err != nil {
			ing.logger.Warn("embedding failed, storing without vector", "path", path, "error", err)
		} else {
			vector = emb.Vector
		}
	}

	return &types.Sample{
		ID:         uuid.New().String(),
		Text:       chunk.Text,
		Tokens:     tokens,
		Vector:     vector,
		Family:     family,
		SourcePath: fmt.Sprintf("%s:%d-%d", path, chunk.StartLine, chunk.EndLine),
		IngestedAt: time.Now().UTC(),
	}
}

func mergeTokens(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, tok := range base {
		seen[tok] = struct{}{}
	}
	for _, tok := range extra {
		if _, dup := seen[tok]; !dup {
			seen[tok] = struct{}{}
			base = append(base, tok)
		}
	}
	return base
}

func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold no corpus material
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
