package llm

import (
	"fmt"
	"strings"

	"github.com/dshills/malrag-mcp/internal/features"
)

// SystemPrompt frames the report structure the generative step must follow.
const SystemPrompt = `You are an elite malware reverse engineer. Your analysis must include:
1. **Executive Summary**: High-level threat assessment.
2. **Behavioral Analysis**: What the code does.
3. **Malicious Techniques**: Specific TTPs (map to MITRE ATT&CK).
4. **Indicators of Compromise**: File hashes, network indicators, etc.
5. **Detection Rules**: YARA rule snippets.
Be thorough and technical.`

// BuildReportPrompt assembles the user prompt: the code under analysis,
// the serialized retrieval context, extracted indicator features, and the
// ATT&CK techniques those indicators suggest.
func BuildReportPrompt(content, retrievalContext string, f features.Features) string {
	var b strings.Builder

	b.WriteString("# Code to Analyze:\n```\n")
	b.WriteString(content)
	b.WriteString("\n```\n\n")

	if retrievalContext != "" {
		b.WriteString(retrievalContext)
		b.WriteString("\n")
	}

	b.WriteString("## Extracted Features from Target Sample\n\n")
	fmt.Fprintf(&b, "**Suspicious API Calls:** %s\n", joinOrNone(f.APICalls))
	fmt.Fprintf(&b, "**Network Operations:** %s\n", joinOrNone(f.NetworkOps))
	fmt.Fprintf(&b, "**Cryptographic Operations:** %s\n", joinOrNone(f.CryptoOps))

	if techniques := MapTechniques(f); len(techniques) > 0 {
		b.WriteString("\n## Likely ATT&CK Techniques\n\n")
		for _, t := range techniques {
			fmt.Fprintf(&b, "- %s %s (%s)\n", t.ID, t.Name, t.Tactic)
		}
	}

	b.WriteString("\nProvide a comprehensive malware analysis based on the code and the similar samples from our database.")

	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None detected"
	}
	return strings.Join(items, ", ")
}
