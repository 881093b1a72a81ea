package types

// ContextEntry is one retrieved-sample summary with its provenance,
// included in rank order.
type ContextEntry struct {
	Summary    string
	Provenance string // source path or sample ID of the corpus record
	Score      float64
}

// ClusterSummary is the composed textual summary of one similarity cluster.
type ClusterSummary struct {
	ClusterID string
	Text      string
}

// AnalysisContext is the final bundle handed to the generative step. Its
// serialized size never exceeds the budget it was composed under.
type AnalysisContext struct {
	Entries   []ContextEntry
	Summaries []ClusterSummary
	Rules     []RuleDraft
	Size      int // serialized size in characters
	Budget    int
	// RetrievalModes lists which index kinds actually contributed, so a
	// degraded (e.g. sparse-only) report is annotated as such.
	RetrievalModes []IndexKind
}

// Empty reports whether the context carries no retrieved material
func (a *AnalysisContext) Empty() bool {
	return len(a.Entries) == 0 && len(a.Summaries) == 0 && len(a.Rules) == 0
}

// Validate checks the budget invariant
func (a *AnalysisContext) Validate() error {
	if a.Budget > 0 && a.Size > a.Budget {
		return ErrBudgetExceeded
	}
	return nil
}
