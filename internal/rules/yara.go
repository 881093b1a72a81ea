package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// RenderYARA formats a rule draft as YARA source. The rule name derives
// from the family label and a short hash of the cluster ID so repeated
// drafts for one family stay distinct.
func RenderYARA(draft *types.RuleDraft, now time.Time) string {
	family := draft.Family
	if family == "" {
		family = "unknown"
	}

	sum := sha256.Sum256([]byte(draft.ClusterID + family))
	ruleName := fmt.Sprintf("%s_%s", sanitizeIdentifier(family), hex.EncodeToString(sum[:2]))

	var b strings.Builder
	fmt.Fprintf(&b, "rule %s\n{\n", ruleName)

	b.WriteString("    meta:\n")
	fmt.Fprintf(&b, "        description = \"Auto-generated rule for %s\"\n", family)
	fmt.Fprintf(&b, "        date = %q\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "        cluster = %q\n", draft.ClusterID)
	fmt.Fprintf(&b, "        confidence = \"%.2f\"\n", draft.Confidence)
	if draft.LowConfidence {
		b.WriteString("        low_confidence = \"true\"\n")
	}

	b.WriteString("    strings:\n")
	for i, pattern := range draft.Patterns {
		fmt.Fprintf(&b, "        $s%d = %q ascii wide\n", i+1, pattern)
	}

	required := len(draft.Patterns)/2 + 1
	b.WriteString("    condition:\n")
	fmt.Fprintf(&b, "        uint16(0) == 0x5A4D and %d of ($s*)\n", required)
	b.WriteString("}\n")

	return b.String()
}

// sanitizeIdentifier maps a family label to a valid YARA rule name part.
// YARA identifiers cannot start with a digit.
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "_" + out
	}
	return out
}
