package ingest

import (
	"strings"
)

// chunking bounds for code files
const (
	// functionBreakMinLines is the minimum chunk length before a function
	// definition line may close the chunk.
	functionBreakMinLines = 10
	// maxChunkLines is the hard cap per chunk.
	maxChunkLines = 50
)

// functionKeywords mark likely function starts across the corpus's
// languages (C, Python, VBScript, assembly, JS).
var functionKeywords = []string{"def ", "function ", "sub ", "PROC", "void ", "int main"}

// Chunk is one segment of a source file, carrying its line range.
type Chunk struct {
	Text      string
	StartLine int
	EndLine   int
}

// ChunkCode splits source content into segments along function boundaries.
// A chunk closes when a function definition appears after enough lines, or
// at the hard line cap; the file tail always becomes a final chunk.
func ChunkCode(content string) []Chunk {
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	var current []string
	start := 0

	for i, line := range lines {
		current = append(current, line)

		if (isFunctionDef(line) && len(current) > functionBreakMinLines) || len(current) >= maxChunkLines {
			chunks = append(chunks, Chunk{
				Text:      strings.Join(current, "\n"),
				StartLine: start,
				EndLine:   i,
			})
			current = nil
			start = i + 1
		}
	}

	if len(current) > 0 {
		text := strings.Join(current, "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{
				Text:      text,
				StartLine: start,
				EndLine:   len(lines),
			})
		}
	}

	return chunks
}

// ChunkText splits prose content into paragraph chunks on blank lines.
func ChunkText(content string) []Chunk {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []Chunk
	for i, para := range paragraphs {
		text := strings.TrimSpace(para)
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:      text,
			StartLine: i,
			EndLine:   i,
		})
	}

	return chunks
}

func isFunctionDef(line string) bool {
	for _, kw := range functionKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
