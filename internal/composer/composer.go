// Package composer assembles the size-bounded retrieval context handed to
// the generative step. Items are admitted in a fixed priority order, top
// ranked matches first, then cluster summaries, then rule drafts; each item
// is included atomically or not at all, so the serialized size never
// exceeds the budget.
package composer

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/malrag-mcp/internal/rules"
	"github.com/dshills/malrag-mcp/pkg/types"
)

// Composer builds analysis contexts under a character budget.
type Composer struct {
	budget        int
	snippetLength int
}

// New creates a Composer. Budget is the maximum serialized context size in
// characters; snippetLength caps how much of each sample text a summary
// carries.
func New(budget, snippetLength int) *Composer {
	if budget <= 0 {
		budget = 16384
	}
	if snippetLength <= 0 {
		snippetLength = 500
	}
	return &Composer{budget: budget, snippetLength: snippetLength}
}

// Compose fills an AnalysisContext from ranked results, clusters, and rule
// drafts. Within each priority tier the first item that does not fit stops
// admission for that tier, so truncation always drops lowest-ranked items
// first and a context composed under a larger budget is a superset of one
// composed under a smaller budget.
//
// Empty inputs produce an empty but valid context, not an error.
func (c *Composer) Compose(results []types.RankedResult, clusters []types.Cluster, drafts []*types.RuleDraft, samples map[string]*types.Sample, modes []types.IndexKind) *types.AnalysisContext {
	ctx := &types.AnalysisContext{
		Budget:         c.budget,
		RetrievalModes: modes,
	}

	for _, r := range results {
		sample, ok := samples[r.SampleID]
		if !ok {
			continue
		}

		entry := types.ContextEntry{
			Summary:    c.summarizeSample(sample, r),
			Provenance: provenance(sample),
			Score:      r.Score,
		}
		// Items are measured as the exact block they contribute to the
		// serialized prompt, including the section header the first item
		// of a tier opens.
		cost := len(entryBlock(entry))
		if len(ctx.Entries) == 0 {
			cost += len(entriesHeader)
		}
		if !c.fits(ctx, cost) {
			break
		}

		ctx.Entries = append(ctx.Entries, entry)
		ctx.Size += cost
	}

	for _, cl := range clusters {
		summary := types.ClusterSummary{
			ClusterID: cl.ID,
			Text:      summarizeCluster(&cl),
		}
		cost := len(clusterBlock(summary))
		if len(ctx.Summaries) == 0 {
			cost += len(clustersHeader) + 1 // trailing blank line after the tier
		}
		if !c.fits(ctx, cost) {
			break
		}

		ctx.Summaries = append(ctx.Summaries, summary)
		ctx.Size += cost
	}

	for _, draft := range drafts {
		if draft == nil {
			continue
		}
		cost := len(ruleBlock(draft, time.Now()))
		if len(ctx.Rules) == 0 {
			cost += len(rulesHeader)
		}
		if !c.fits(ctx, cost) {
			break
		}

		ctx.Rules = append(ctx.Rules, *draft)
		ctx.Size += cost
	}

	return ctx
}

// fits reports whether an item of the given serialized size can be
// admitted without breaking the budget.
func (c *Composer) fits(ctx *types.AnalysisContext, size int) bool {
	return ctx.Size+size <= c.budget
}

func (c *Composer) summarizeSample(sample *types.Sample, r types.RankedResult) string {
	snippet := sample.Text
	if len(snippet) > c.snippetLength {
		cut := c.snippetLength
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%d] score=%.3f", r.Rank, r.Score)
	if sample.Family != "" {
		fmt.Fprintf(&b, " family=%s", sample.Family)
	}
	b.WriteString("\n")
	b.WriteString(snippet)
	return b.String()
}

func provenance(sample *types.Sample) string {
	if sample.SourcePath != "" {
		return sample.SourcePath
	}
	return sample.ID
}

func summarizeCluster(c *types.Cluster) string {
	return fmt.Sprintf("cluster %s: %d members, centroid %s, mean similarity %.3f",
		c.ID, c.Size(), c.CentroidID, c.MeanSimilarity)
}

// Prompt section headers. Compose charges the header against the first
// item of a tier so the accounted size matches the serialized output.
const (
	entriesHeader  = "## Similar known samples\n"
	clustersHeader = "## Clusters\n"
	rulesHeader    = "## Candidate detection rules\n"
)

func entryBlock(e types.ContextEntry) string {
	return fmt.Sprintf("source: %s\n%s\n\n", e.Provenance, e.Summary)
}

func clusterBlock(s types.ClusterSummary) string {
	return s.Text + "\n"
}

func ruleBlock(d *types.RuleDraft, now time.Time) string {
	return rules.RenderYARA(d, now) + "\n"
}

// Serialize renders the composed context as the prompt section handed to
// the generative service. The output length never exceeds ctx.Budget;
// Compose admits items by the size of the exact blocks rendered here.
func Serialize(ctx *types.AnalysisContext) string {
	var b strings.Builder

	if len(ctx.Entries) > 0 {
		b.WriteString(entriesHeader)
		for _, e := range ctx.Entries {
			b.WriteString(entryBlock(e))
		}
	}

	if len(ctx.Summaries) > 0 {
		b.WriteString(clustersHeader)
		for _, s := range ctx.Summaries {
			b.WriteString(clusterBlock(s))
		}
		b.WriteString("\n")
	}

	if len(ctx.Rules) > 0 {
		b.WriteString(rulesHeader)
		for i := range ctx.Rules {
			b.WriteString(ruleBlock(&ctx.Rules[i], time.Now()))
		}
	}

	return b.String()
}
