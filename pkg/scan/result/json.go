package result

import (
	"encoding/json"
	"io"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/scanner/entropy"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
)

// JSONReporter writes a single JSON document. Secrets are reduced to a short
// preview plus advisory metadata about their shape.
type JSONReporter struct{}

type jsonFinding struct {
	types.Finding
	SecretPreview string `json:"secret_preview"`
	Fingerprint   string `json:"fingerprint"`
	// SecretMetadata is informational only and never affects whether a
	// finding is reported.
	SecretMetadata entropy.Metadata `json:"secret_metadata"`
}

type jsonSummary struct {
	Findings  int         `json:"findings"`
	Scanned   int         `json:"scanned"`
	Skipped   int         `json:"skipped"`
	Cancelled bool        `json:"cancelled"`
	ByRule    []RuleCount `json:"by_rule"`
}

type jsonReport struct {
	Tool        string             `json:"tool"`
	Version     string             `json:"version,omitempty"`
	Target      string             `json:"target"`
	Mode        string             `json:"mode"`
	Findings    []jsonFinding      `json:"findings"`
	Diagnostics []types.Diagnostic `json:"diagnostics"`
	Summary     jsonSummary        `json:"summary"`
}

func (JSONReporter) Report(w io.Writer, result *types.Result, meta Meta) error {
	mode := "tree"
	if meta.History {
		mode = "history"
	}

	report := jsonReport{
		Tool:        meta.ToolName,
		Version:     meta.ToolVersion,
		Target:      meta.Target,
		Mode:        mode,
		Findings:    make([]jsonFinding, 0, len(result.Findings)),
		Diagnostics: append([]types.Diagnostic{}, result.Diagnostics...),
		Summary: jsonSummary{
			Findings:  len(result.Findings),
			Scanned:   result.Scanned,
			Skipped:   result.Skipped,
			Cancelled: result.Cancelled,
			ByRule:    CountByRule(result.Findings),
		},
	}
	if report.Summary.ByRule == nil {
		report.Summary.ByRule = []RuleCount{}
	}

	for _, f := range result.Findings {
		report.Findings = append(report.Findings, jsonFinding{
			Finding:        f,
			SecretPreview:  format.Truncate(f.MatchedValue, PreviewLength),
			Fingerprint:    Fingerprint(f),
			SecretMetadata: entropy.Score(f.MatchedValue, entropy.MinClassifyLength),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
