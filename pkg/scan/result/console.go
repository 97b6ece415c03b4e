package result

import (
	"io"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/logging"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/rs/zerolog/log"
)

// ConsoleReporter logs every finding as a hit event followed by a summary
// line. It writes through the global logger, not w.
type ConsoleReporter struct{}

func (ConsoleReporter) Report(_ io.Writer, result *types.Result, meta Meta) error {
	for _, f := range result.Findings {
		ReportFinding(f)
	}
	for _, d := range result.Diagnostics {
		log.Warn().Str("kind", string(d.Kind)).Str("path", d.Path).Str("commit", d.Commit).Msg(d.Message)
	}

	event := log.Info().
		Str("target", meta.Target).
		Int("findings", len(result.Findings)).
		Int("scanned", result.Scanned).
		Int("skipped", result.Skipped).
		Int("diagnostics", len(result.Diagnostics))
	if result.Cancelled {
		event.Bool("cancelled", true)
	}
	event.Msg("Scan finished")
	return nil
}

// ReportFinding emits a single hit event. The secret is truncated for display.
func ReportFinding(f types.Finding) {
	source := logging.SourceFile
	if f.CommitID != "" {
		source = logging.SourceHistory
	}

	event := logging.Hit().
		Str("type", string(source)).
		Str("ruleId", f.RuleID).
		Str("ruleName", f.Description).
		Str("file", f.FilePath).
		Int("line", f.LineNumber).
		Int("column", f.Column).
		Str("value", format.DisplayValue(f.MatchedValue, DisplayLength))

	if f.CommitID != "" {
		event = event.Str("commit", f.CommitID)
	}
	if f.Entropy != nil {
		event = event.Float64("entropy", *f.Entropy)
	}
	if len(f.Tags) > 0 {
		event = event.Strs("tags", f.Tags)
	}

	event.Msg("SECRET")
}
