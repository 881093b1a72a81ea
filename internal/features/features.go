// Package features extracts indicator-of-compromise signals from sample
// text: suspicious API calls, network operations, and cryptographic
// operations. These feed sample metadata during ingestion and the
// behavioral section of generated reports.
package features

import (
	"regexp"
	"strings"
)

// suspiciousAPIs are Windows API calls frequently abused by malware.
// Matching is case-insensitive; the canonical casing is reported.
var suspiciousAPIs = []string{
	"CreateRemoteThread", "WriteProcessMemory", "VirtualAllocEx",
	"OpenProcess", "LoadLibrary", "GetProcAddress", "WinExec",
	"ShellExecute", "URLDownloadToFile", "InternetOpen",
	"CreateService", "RegSetValue", "CryptEncrypt",
}

var networkPatterns = []string{"socket", "connect", "send", "recv", "http", "ftp"}

var cryptoPatterns = []string{"aes", "rsa", "encrypt", "decrypt", "cipher", "hash", "md5", "sha"}

// knownFamilies are the family labels recognized in corpus source paths.
var knownFamilies = []string{
	"emotet", "trickbot", "ryuk", "conti", "lockbit", "revil",
	"wannacry", "notpetya", "mirai", "zeus", "dridex", "qakbot",
	"cobalt", "metasploit", "mimikatz", "powersploit",
}

// Features is the indicator set extracted from one sample text.
type Features struct {
	APICalls   []string
	NetworkOps []string
	CryptoOps  []string
}

// Empty reports whether no indicator matched.
func (f Features) Empty() bool {
	return len(f.APICalls) == 0 && len(f.NetworkOps) == 0 && len(f.CryptoOps) == 0
}

// Tokens flattens the feature set into lowercase tokens for indexing.
func (f Features) Tokens() []string {
	tokens := make([]string, 0, len(f.APICalls)+len(f.NetworkOps)+len(f.CryptoOps))
	for _, api := range f.APICalls {
		tokens = append(tokens, strings.ToLower(api))
	}
	tokens = append(tokens, f.NetworkOps...)
	tokens = append(tokens, f.CryptoOps...)
	return tokens
}

// Extract scans sample text for known indicators.
func Extract(text string) Features {
	lower := strings.ToLower(text)

	var f Features
	for _, api := range suspiciousAPIs {
		if strings.Contains(lower, strings.ToLower(api)) {
			f.APICalls = append(f.APICalls, api)
		}
	}
	for _, p := range networkPatterns {
		if strings.Contains(lower, p) {
			f.NetworkOps = append(f.NetworkOps, p)
		}
	}
	for _, p := range cryptoPatterns {
		if strings.Contains(lower, p) {
			f.CryptoOps = append(f.CryptoOps, p)
		}
	}

	return f
}

var yearPattern = regexp.MustCompile(`(19\d{2}|20\d{2})`)

// YearFromPath pulls a four-digit year out of a corpus path, defaulting
// to 0 when none is present.
func YearFromPath(path string) int {
	m := yearPattern.FindString(path)
	if m == "" {
		return 0
	}

	year := 0
	for _, r := range m {
		year = year*10 + int(r-'0')
	}
	return year
}

// FamilyFromPath matches a known family name anywhere in the path,
// case-insensitive. Unrecognized paths yield the empty string so callers
// can distinguish "unlabeled" from a real label.
func FamilyFromPath(path string) string {
	lower := strings.ToLower(path)
	for _, family := range knownFamilies {
		if strings.Contains(lower, family) {
			return family
		}
	}
	return ""
}
