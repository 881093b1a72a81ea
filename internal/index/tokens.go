package index

import (
	"strings"
	"unicode"
)

// minTokenLength drops one and two character fragments that carry no
// retrieval signal.
const minTokenLength = 3

// Tokenize normalizes sample text into lowercase keyword tokens. Splits on
// anything that is not a letter, digit, or underscore so API names like
// CreateRemoteThread and WriteProcessMemory survive as single tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		tok := strings.ToLower(f)
		if len(tok) < minTokenLength {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	return tokens
}
