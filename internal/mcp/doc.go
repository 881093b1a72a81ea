// Package mcp implements the Model Context Protocol (MCP) server for the
// malware-analysis pipeline.
//
// The server exposes four tools to MCP clients:
//   - analyze_sample: run retrieval, clustering, rule synthesis, and
//     optionally the generative report for a suspicious snippet
//   - search_corpus: raw hybrid search over the ingested corpus
//   - ingest_corpus: load a directory of samples into the corpus
//   - get_status: corpus and index statistics
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport; the server reads
// requests from standard input and writes results to standard output, so
// any MCP-compatible client can drive it.
package mcp
