package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/malrag-mcp/internal/analyzer"
	"github.com/dshills/malrag-mcp/internal/composer"
	"github.com/dshills/malrag-mcp/internal/config"
	"github.com/dshills/malrag-mcp/internal/corpus"
	"github.com/dshills/malrag-mcp/internal/embedder"
	"github.com/dshills/malrag-mcp/internal/index"
	"github.com/dshills/malrag-mcp/internal/ingest"
	"github.com/dshills/malrag-mcp/internal/llm"
	"github.com/dshills/malrag-mcp/internal/router"
	"github.com/dshills/malrag-mcp/internal/rules"
)

const (
	// ServerName is the MCP server name
	ServerName = "malrag-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the pipeline components.
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	store    corpus.Store
	sparse   *index.SparseIndex
	dense    *index.DenseIndex
	analyzer *analyzer.Analyzer
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// NewServer builds every pipeline component from configuration and
// registers the tools. The embedder instance is shared by the dense index
// and the ingester so both hit the same cache.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := expandHome(cfg.Corpus.DBPath)
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	store, err := corpus.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open corpus store: %w", err)
	}

	sparse, err := index.NewSparseIndex(cfg.Corpus.SparseIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	emb, err := embedder.NewFromConfig(cfg.Embedding)
	if err != nil {
		_ = store.Close()
		_ = sparse.Close()
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	dense := index.NewDenseIndex(emb, store)

	var completer llm.Completer
	if cfg.LLM.Endpoint != "" {
		completer = llm.NewClient(cfg.LLM)
	}

	a := analyzer.New(
		router.New(cfg.Retrieval),
		sparse,
		dense,
		store,
		rules.NewSynthesizer(cfg.Rules.MinPatternLength, cfg.Rules.MaxPatterns),
		composer.New(cfg.Context.Budget, cfg.Context.SnippetLength),
		completer,
		logger,
	)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		store:    store,
		sparse:   sparse,
		dense:    dense,
		analyzer: a,
		ingester: ingest.New(store, sparse, emb, logger, 4),
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.closeAll()
	return server.ServeStdio(s.mcp)
}

// Ingest runs directory ingestion outside the MCP transport. Used by the
// command line.
func (s *Server) Ingest(ctx context.Context, path string) (*ingest.Stats, error) {
	return s.ingester.IngestDirectory(ctx, path)
}

// AnalyzeText runs the full analysis pipeline and returns the response as
// indented JSON. When withReport is set the generative report is included.
func (s *Server) AnalyzeText(ctx context.Context, req router.Request, withReport bool) (string, error) {
	report, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return "", err
	}
	if withReport {
		if err := s.analyzer.GenerateReport(ctx, req, report); err != nil {
			s.logger.Warn("report generation failed", "error", err)
		}
	}
	return formatJSON(analyzeResponse(report)), nil
}

// Status returns corpus and index statistics as indented JSON.
func (s *Server) Status(ctx context.Context) (string, error) {
	samples, err := s.store.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count samples: %w", err)
	}
	indexed, err := s.sparse.Count()
	if err != nil {
		return "", fmt.Errorf("count indexed documents: %w", err)
	}

	return formatJSON(map[string]interface{}{
		"samples":            samples,
		"indexed_keywords":   indexed,
		"embedding_provider": s.cfg.Embedding.Provider,
	}), nil
}

// Close releases the corpus store and keyword index.
func (s *Server) Close() {
	s.closeAll()
}

func (s *Server) closeAll() {
	if err := s.sparse.Close(); err != nil {
		s.logger.Warn("closing keyword index", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing corpus store", "error", err)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(analyzeSampleTool(), s.handleAnalyzeSample)
	s.mcp.AddTool(searchCorpusTool(), s.handleSearchCorpus)
	s.mcp.AddTool(ingestCorpusTool(), s.handleIngestCorpus)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
