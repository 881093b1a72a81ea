// Package analyzer orchestrates one analysis request end to end: route,
// parallel sparse and dense retrieval, fusion, clustering, rule synthesis,
// and context composition. Each request is an independent unit of work;
// nothing here mutates shared state beyond read access to the indexes.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/malrag-mcp/internal/cluster"
	"github.com/dshills/malrag-mcp/internal/composer"
	"github.com/dshills/malrag-mcp/internal/features"
	"github.com/dshills/malrag-mcp/internal/llm"
	"github.com/dshills/malrag-mcp/internal/ranker"
	"github.com/dshills/malrag-mcp/internal/router"
	"github.com/dshills/malrag-mcp/internal/rules"
	"github.com/dshills/malrag-mcp/pkg/types"
)

// Searcher is one index lookup, sparse or dense.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]types.ScoredMatch, error)
}

// SampleLoader resolves matched sample IDs to full records.
type SampleLoader interface {
	GetSamples(ctx context.Context, ids []string) (map[string]*types.Sample, error)
}

// Report is the outcome of one analysis request.
type Report struct {
	Context    *types.AnalysisContext
	Results    []types.RankedResult
	Clusters   []types.Cluster
	Drafts     []*types.RuleDraft
	Features   features.Features
	FamilyHint string
	// Text is the generative report, empty until GenerateReport runs.
	Text string
}

// Analyzer wires the pipeline stages for per-request execution.
type Analyzer struct {
	router    *router.Router
	sparse    Searcher
	dense     Searcher
	loader    SampleLoader
	synth     *rules.Synthesizer
	composer  *composer.Composer
	completer llm.Completer
	logger    *slog.Logger
}

// New assembles an Analyzer. completer may be nil when no generative
// service is configured; Analyze works without it.
func New(r *router.Router, sparse, dense Searcher, loader SampleLoader, synth *rules.Synthesizer, comp *composer.Composer, completer llm.Completer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		router:    r,
		sparse:    sparse,
		dense:     dense,
		loader:    loader,
		synth:     synth,
		composer:  comp,
		completer: completer,
		logger:    logger,
	}
}

// Analyze runs the retrieval pipeline for one request. Either index may
// fail without aborting the request; the report is then built from the
// surviving side and annotated with the retrieval modes actually used.
// Only when both lookups fail does the request fail, with
// ErrRetrievalFailed.
func (a *Analyzer) Analyze(ctx context.Context, req router.Request) (*Report, error) {
	decision, err := a.router.Route(req)
	if err != nil {
		return nil, err
	}

	sparseMatches, denseMatches, modes, err := a.retrieve(ctx, req, decision)
	if err != nil {
		return nil, err
	}

	weights := ranker.Weights{Dense: decision.DenseWeight, Sparse: decision.SparseWeight}
	if req.Kind == types.KindSourceCode && len(sparseMatches) < decision.MinSparseHits {
		// Token-exact retrieval came back too thin for a literal source
		// snippet; lean on the embedding space instead.
		weights.Dense, weights.Sparse = decision.FallbackWeights()
		a.logger.Debug("sparse results below floor, using dense fallback weights",
			"sparse_hits", len(sparseMatches), "min", decision.MinSparseHits)
	}

	results := ranker.Rank(sparseMatches, denseMatches, weights)
	if len(results) > decision.TopK {
		results = results[:decision.TopK]
	}

	samples, err := a.loadSamples(ctx, results)
	if err != nil {
		return nil, err
	}

	clusters := cluster.Extract(results, samples, cluster.Similarity, decision.ClusterThreshold)

	var drafts []*types.RuleDraft
	for i := range clusters {
		draft, err := a.synth.Synthesize(&clusters[i], samples)
		if errors.Is(err, types.ErrNoPatternFound) {
			// This cluster yields no rule; the pipeline continues.
			a.logger.Debug("no pattern found for cluster", "cluster", clusters[i].ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("synthesize rules for cluster %s: %w", clusters[i].ID, err)
		}
		drafts = append(drafts, draft)
	}

	analysisCtx := a.composer.Compose(results, clusters, drafts, samples, modes)

	return &Report{
		Context:    analysisCtx,
		Results:    results,
		Clusters:   clusters,
		Drafts:     drafts,
		Features:   features.Extract(req.Content),
		FamilyHint: decision.FamilyHint,
	}, nil
}

// retrieve runs both index lookups in parallel and tolerates one side
// failing. The ranker is the synchronization point; nothing downstream
// starts until both lookups have returned.
func (a *Analyzer) retrieve(ctx context.Context, req router.Request, decision router.Decision) (sparse, dense []types.ScoredMatch, modes []types.IndexKind, err error) {
	var sparseErr, denseErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sparse, sparseErr = a.sparse.Search(gctx, req.Content, decision.TopK)
		return nil
	})
	g.Go(func() error {
		dense, denseErr = a.dense.Search(gctx, req.Content, decision.TopK)
		return nil
	})
	// Lookup errors are captured per side, never propagated through the
	// group; a failed side must not cancel the other.
	_ = g.Wait()

	if sparseErr != nil && denseErr != nil {
		return nil, nil, nil, fmt.Errorf("%w: sparse: %v; dense: %v", types.ErrRetrievalFailed, sparseErr, denseErr)
	}

	if sparseErr != nil {
		a.logger.Warn("sparse lookup failed, degrading to dense-only", "error", sparseErr)
		sparse = nil
	} else {
		modes = append(modes, types.IndexSparse)
	}

	if denseErr != nil {
		a.logger.Warn("dense lookup failed, degrading to sparse-only", "error", denseErr)
		dense = nil
	} else {
		modes = append(modes, types.IndexDense)
	}

	return sparse, dense, modes, nil
}

func (a *Analyzer) loadSamples(ctx context.Context, results []types.RankedResult) (map[string]*types.Sample, error) {
	if len(results) == 0 {
		return map[string]*types.Sample{}, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.SampleID
	}

	samples, err := a.loader.GetSamples(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load matched samples: %w", err)
	}

	return samples, nil
}

// GenerateReport sends the composed context to the generative service and
// attaches the resulting report text. No-op when no completer is
// configured.
func (a *Analyzer) GenerateReport(ctx context.Context, req router.Request, report *Report) error {
	if a.completer == nil {
		return nil
	}

	prompt := llm.BuildReportPrompt(req.Content, composer.Serialize(report.Context), report.Features)

	text, err := a.completer.Complete(ctx, llm.SystemPrompt, prompt)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	report.Text = text
	return nil
}
