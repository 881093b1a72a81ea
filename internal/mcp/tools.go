package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/malrag-mcp/internal/analyzer"
	"github.com/dshills/malrag-mcp/internal/llm"
	"github.com/dshills/malrag-mcp/internal/router"
	"github.com/dshills/malrag-mcp/internal/rules"
	"github.com/dshills/malrag-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeUnsupportedKind = -32001 // Unrecognized content kind
	ErrorCodeRetrievalFailed = -32002 // Both index backends failed
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// handleAnalyzeSample handles the analyze_sample tool invocation
func (s *Server) handleAnalyzeSample(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	kind := types.ContentKind(getStringDefault(args, "kind", string(types.KindSourceCode)))
	generateReport, _ := args["generate_report"].(bool)

	req := router.Request{Kind: kind, Content: content}

	report, err := s.analyzer.Analyze(ctx, req)
	if errors.Is(err, types.ErrUnsupportedContentKind) {
		return nil, newMCPError(ErrorCodeUnsupportedKind, "unsupported content kind", map[string]interface{}{
			"param": "kind",
			"value": string(kind),
		})
	}
	if errors.Is(err, types.ErrRetrievalFailed) {
		return nil, newMCPError(ErrorCodeRetrievalFailed, "both retrieval backends failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if generateReport {
		if err := s.analyzer.GenerateReport(ctx, req, report); err != nil {
			// A degraded report without generative text is still a report
			s.logger.Warn("report generation failed", "error", err)
		}
	}

	return mcp.NewToolResultText(formatJSON(analyzeResponse(report))), nil
}

func analyzeResponse(report *analyzer.Report) map[string]interface{} {
	matches := make([]map[string]interface{}, len(report.Results))
	for i, r := range report.Results {
		matches[i] = map[string]interface{}{
			"sample_id": r.SampleID,
			"score":     r.Score,
			"rank":      r.Rank,
		}
	}

	clusters := make([]map[string]interface{}, len(report.Clusters))
	for i, c := range report.Clusters {
		clusters[i] = map[string]interface{}{
			"id":              c.ID,
			"members":         c.MemberIDs,
			"centroid":        c.CentroidID,
			"mean_similarity": c.MeanSimilarity,
		}
	}

	drafts := make([]map[string]interface{}, len(report.Drafts))
	for i, d := range report.Drafts {
		drafts[i] = map[string]interface{}{
			"cluster_id":     d.ClusterID,
			"patterns":       d.Patterns,
			"confidence":     d.Confidence,
			"family":         d.Family,
			"low_confidence": d.LowConfidence,
			"yara":           rules.RenderYARA(d, time.Now()),
		}
	}

	modes := make([]string, len(report.Context.RetrievalModes))
	for i, m := range report.Context.RetrievalModes {
		modes[i] = string(m)
	}

	techniques := make([]map[string]interface{}, 0)
	for _, t := range llm.MapTechniques(report.Features) {
		techniques = append(techniques, map[string]interface{}{
			"id":     t.ID,
			"name":   t.Name,
			"tactic": t.Tactic,
		})
	}

	response := map[string]interface{}{
		"matches":         matches,
		"clusters":        clusters,
		"rule_drafts":     drafts,
		"family_hint":     report.FamilyHint,
		"retrieval_modes": modes,
		"techniques":      techniques,
		"context_size":    report.Context.Size,
		"features": map[string]interface{}{
			"api_calls":   report.Features.APICalls,
			"network_ops": report.Features.NetworkOps,
			"crypto_ops":  report.Features.CryptoOps,
		},
	}
	if report.Text != "" {
		response["report"] = report.Text
	}

	return response
}

// handleSearchCorpus handles the search_corpus tool invocation
func (s *Server) handleSearchCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	kind := types.ContentKind(getStringDefault(args, "kind", string(types.KindFreeText)))

	report, err := s.analyzer.Analyze(ctx, router.Request{Kind: kind, Content: query})
	if errors.Is(err, types.ErrUnsupportedContentKind) {
		return nil, newMCPError(ErrorCodeUnsupportedKind, "unsupported content kind", map[string]interface{}{
			"param": "kind",
			"value": string(kind),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := report.Results
	if len(results) > limit {
		results = results[:limit]
	}

	matches := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"sample_id": r.SampleID,
			"score":     r.Score,
			"rank":      r.Rank,
		}
		if sample, err := s.store.GetSample(ctx, r.SampleID); err == nil {
			entry["family"] = sample.Family
			entry["source_path"] = sample.SourcePath
			snippet := sample.Text
			if len(snippet) > s.cfg.Context.SnippetLength {
				snippet = snippet[:s.cfg.Context.SnippetLength]
			}
			entry["snippet"] = snippet
		}
		matches = append(matches, entry)
	}

	modes := make([]string, len(report.Context.RetrievalModes))
	for i, m := range report.Context.RetrievalModes {
		modes[i] = string(m)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"matches":         matches,
		"retrieval_modes": modes,
	})), nil
}

// handleIngestCorpus handles the ingest_corpus tool invocation
func (s *Server) handleIngestCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	stats, err := s.ingester.IngestDirectory(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"files_processed": stats.FilesProcessed,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"chunks_ingested": stats.ChunksIngested,
		"duplicates":      stats.Duplicates,
	}
	if len(stats.Errors) > 0 {
		errorCount := len(stats.Errors)
		if errorCount > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sampleCount, err := s.store.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count samples", map[string]interface{}{
			"error": err.Error(),
		})
	}

	indexed, err := s.sparse.Count()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count indexed documents", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"samples":          sampleCount,
		"indexed_keywords": indexed,
		"embedding": map[string]interface{}{
			"provider":  s.cfg.Embedding.Provider,
			"dimension": s.cfg.Embedding.Dimension,
		},
		"retrieval": map[string]interface{}{
			"top_k":             s.cfg.Retrieval.TopK,
			"cluster_threshold": s.cfg.Retrieval.ClusterThreshold,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path exists and is a readable directory
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
