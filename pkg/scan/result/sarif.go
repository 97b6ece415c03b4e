package result

import (
	"fmt"
	"io"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/owenrumney/go-sarif/sarif"
)

const informationURI = "https://github.com/CompassSecurity/leekscan"

// SARIFReporter writes a SARIF 2.1.0 log with one run.
type SARIFReporter struct{}

func (SARIFReporter) Report(w io.Writer, result *types.Result, meta Meta) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	toolName := meta.ToolName
	if toolName == "" {
		toolName = "leekscan"
	}
	run := sarif.NewRun(toolName, informationURI)

	seen := map[string]bool{}
	for _, f := range result.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			run.AddRule(f.RuleID).WithDescription(f.Description)
		}

		message := fmt.Sprintf("%s detected (fingerprint %s)", f.Description, Fingerprint(f))
		if f.CommitID != "" {
			message = fmt.Sprintf("%s detected in commit %s (fingerprint %s)", f.Description, format.ShortHash(f.CommitID), Fingerprint(f))
		}

		run.AddResult(f.RuleID).
			WithLevel("error").
			WithMessage(sarif.NewTextMessage(message)).
			WithLocation(sarif.NewLocationWithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.FilePath)).
					WithRegion(sarif.NewSimpleRegion(f.LineNumber, f.LineNumber)),
			))
	}

	report.AddRun(run)
	return report.PrettyWrite(w)
}
