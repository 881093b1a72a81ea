package types

import "errors"

// Pipeline error taxonomy. Callers distinguish hard failures (request
// rejected, no report) from soft per-stage degradation.
var (
	// ErrUnsupportedContentKind rejects a request whose content kind tag is
	// not recognized. Caller error; no retry, no silent fallback.
	ErrUnsupportedContentKind = errors.New("unsupported content kind")

	// ErrEmbeddingUnavailable means the embedding service failed; the dense
	// index contributes no candidates and retrieval degrades to sparse-only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrNoPatternFound means a cluster yielded no pattern meeting the
	// minimum length. Soft, per-cluster; the pipeline continues.
	ErrNoPatternFound = errors.New("no common pattern found in cluster")

	// ErrIndexUnavailable means one index backend was unreachable;
	// retrieval degrades to the other backend.
	ErrIndexUnavailable = errors.New("index backend unavailable")

	// ErrRetrievalFailed means both index backends failed; the request
	// fails and no report is produced.
	ErrRetrievalFailed = errors.New("retrieval failed: no index backend available")
)

// Validation errors for value objects
var (
	ErrInvalidSampleID   = errors.New("invalid sample ID")
	ErrInvalidRank       = errors.New("rank must be >= 1")
	ErrInvalidScore      = errors.New("fused score must be between 0 and 1")
	ErrEmptyCluster      = errors.New("cluster must have at least one member")
	ErrMissingCentroid   = errors.New("cluster centroid is required")
	ErrCentroidNotMember = errors.New("centroid must be a cluster member")
	ErrBudgetExceeded    = errors.New("context size exceeds budget")
)
