package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// analyzeSampleTool returns the tool definition for analyze_sample
func analyzeSampleTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_sample",
		Description: "Analyze suspicious code against the malware corpus: hybrid retrieval, clustering, detection-rule synthesis, and an optional generative report",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The suspicious code, extracted binary features, or behavioral description to analyze",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Content kind of the submitted sample",
					"enum":        []string{"source-code", "binary-features", "free-text"},
					"default":     "source-code",
				},
				"generate_report": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, send the composed context to the generative service and include the report text",
					"default":     false,
				},
			},
			Required: []string{"content"},
		},
	}
}

// searchCorpusTool returns the tool definition for search_corpus
func searchCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_corpus",
		Description: "Hybrid keyword + semantic search over the ingested malware corpus",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (code fragment, API names, or natural language)",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Content kind of the query, selects the dense/sparse weight mix",
					"enum":        []string{"source-code", "binary-features", "free-text"},
					"default":     "free-text",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// ingestCorpusTool returns the tool definition for ingest_corpus
func ingestCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_corpus",
		Description: "Ingest a directory of malware source samples into the corpus",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the sample directory",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report corpus and index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
