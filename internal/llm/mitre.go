package llm

import (
	"sort"

	"github.com/dshills/malrag-mcp/internal/features"
)

// Technique is one MITRE ATT&CK technique suggested by extracted
// indicators.
type Technique struct {
	ID     string
	Name   string
	Tactic string
}

// apiTechniques maps suspicious API calls to the ATT&CK techniques they
// most commonly implement.
var apiTechniques = map[string]Technique{
	"CreateRemoteThread": {ID: "T1055", Name: "Process Injection", Tactic: "Defense Evasion"},
	"WriteProcessMemory": {ID: "T1055", Name: "Process Injection", Tactic: "Defense Evasion"},
	"VirtualAllocEx":     {ID: "T1055", Name: "Process Injection", Tactic: "Defense Evasion"},
	"OpenProcess":        {ID: "T1057", Name: "Process Discovery", Tactic: "Discovery"},
	"LoadLibrary":        {ID: "T1129", Name: "Shared Modules", Tactic: "Execution"},
	"GetProcAddress":     {ID: "T1027.007", Name: "Dynamic API Resolution", Tactic: "Defense Evasion"},
	"WinExec":            {ID: "T1106", Name: "Native API", Tactic: "Execution"},
	"ShellExecute":       {ID: "T1204.002", Name: "Malicious File", Tactic: "Execution"},
	"URLDownloadToFile":  {ID: "T1105", Name: "Ingress Tool Transfer", Tactic: "Command and Control"},
	"InternetOpen":       {ID: "T1071.001", Name: "Web Protocols", Tactic: "Command and Control"},
	"CreateService":      {ID: "T1543.003", Name: "Windows Service", Tactic: "Persistence"},
	"RegSetValue":        {ID: "T1547.001", Name: "Registry Run Keys", Tactic: "Persistence"},
	"CryptEncrypt":       {ID: "T1486", Name: "Data Encrypted for Impact", Tactic: "Impact"},
}

var networkTechnique = Technique{ID: "T1071", Name: "Application Layer Protocol", Tactic: "Command and Control"}

var cryptoTechnique = Technique{ID: "T1027", Name: "Obfuscated Files or Information", Tactic: "Defense Evasion"}

// MapTechniques resolves extracted features to a deduplicated technique
// list sorted by technique ID.
func MapTechniques(f features.Features) []Technique {
	seen := make(map[string]Technique)

	for _, api := range f.APICalls {
		if t, ok := apiTechniques[api]; ok {
			seen[t.ID] = t
		}
	}
	if len(f.NetworkOps) > 0 {
		seen[networkTechnique.ID] = networkTechnique
	}
	if len(f.CryptoOps) > 0 {
		seen[cryptoTechnique.ID] = cryptoTechnique
	}

	techniques := make([]Technique, 0, len(seen))
	for _, t := range seen {
		techniques = append(techniques, t)
	}

	sort.Slice(techniques, func(i, j int) bool {
		return techniques[i].ID < techniques[j].ID
	})

	return techniques
}
