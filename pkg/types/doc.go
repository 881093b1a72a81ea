// Package types defines the shared value objects that flow through the
// retrieval and report-synthesis pipeline: corpus samples, per-index scored
// matches, fused ranked results, similarity clusters, detection-rule drafts,
// and the size-bounded analysis context handed to the generative step.
//
// All types in this package are immutable value objects once constructed.
// Pipeline stages consume and produce them without sharing mutable state
// across a single request.
package types
