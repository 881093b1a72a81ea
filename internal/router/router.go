// Package router classifies an analysis request by content kind and picks
// the retrieval configuration: dense/sparse weight mix, top-K, and the
// cluster threshold handed downstream.
package router

import (
	"fmt"
	"strings"

	"github.com/dshills/malrag-mcp/internal/config"
	"github.com/dshills/malrag-mcp/pkg/types"
)

// Request is an incoming analysis request.
type Request struct {
	Kind    types.ContentKind
	Content string
}

// Decision is the retrieval configuration selected for one request.
type Decision struct {
	DenseWeight      float64
	SparseWeight     float64
	TopK             int
	ClusterThreshold float64
	// MinSparseHits applies to source-code queries only: when the sparse
	// lookup returns fewer hits, the ranker re-weights toward dense.
	MinSparseHits int
	// FamilyHint is a best-effort category guess from keyword heuristics,
	// "general" when nothing matches.
	FamilyHint string
}

// FallbackWeights returns the dense-weighted mix a source-code query
// degrades to when sparse retrieval comes back too thin.
func (d Decision) FallbackWeights() (dense, sparse float64) {
	return 0.7, 0.3
}

// Router selects per-request retrieval configuration from content kind.
type Router struct {
	cfg config.RetrievalConfig
}

// New creates a Router with the given retrieval defaults.
func New(cfg config.RetrievalConfig) *Router {
	return &Router{cfg: cfg}
}

// Route maps a request to its retrieval configuration. Unknown content
// kinds are rejected, never silently defaulted.
func (r *Router) Route(req Request) (Decision, error) {
	d := Decision{
		TopK:             r.cfg.TopK,
		ClusterThreshold: r.cfg.ClusterThreshold,
		MinSparseHits:    r.cfg.MinSparseHits,
		FamilyHint:       FamilyHint(req.Content),
	}

	switch req.Kind {
	case types.KindSourceCode:
		// Token-exact match dominates for literal source; the analyzer
		// falls back to FallbackWeights when sparse hits are sparse.
		d.DenseWeight = 0.3
		d.SparseWeight = 0.7
	case types.KindBinaryFeatures:
		// Derived features rarely share literal tokens with the corpus.
		d.DenseWeight = 0.8
		d.SparseWeight = 0.2
		d.MinSparseHits = 0
	case types.KindFreeText:
		d.DenseWeight = 0.5
		d.SparseWeight = 0.5
		d.MinSparseHits = 0
	default:
		return Decision{}, fmt.Errorf("%w: %q", types.ErrUnsupportedContentKind, req.Kind)
	}

	return d, nil
}

// familyKeywords maps malware categories to the keywords that hint them.
// First match wins, checked in a fixed order.
var familyKeywords = []struct {
	family   string
	keywords []string
}{
	{"ransomware", []string{"encrypt", "ransom", "bitcoin", ".locked"}},
	{"rats", []string{"keylog", "screenshot", "clipboard", "rat"}},
	{"rootkits", []string{"kernel", "driver", "rootkit", "ssdt"}},
	{"cryptominers", []string{"mining", "xmrig", "monero", "stratum"}},
	{"botnets", []string{"bot", "ddos", "irc", "command"}},
	{"infostealers", []string{"password", "cookie", "credential", "wallet"}},
}

// FamilyHint guesses a malware category from request content keywords.
func FamilyHint(content string) string {
	lower := strings.ToLower(content)

	for _, entry := range familyKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.family
			}
		}
	}

	return "general"
}
