package result

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
)

// SummaryReporter prints finding counts per rule.
type SummaryReporter struct{}

func (SummaryReporter) Report(w io.Writer, result *types.Result, meta Meta) error {
	unit := "files"
	if meta.History {
		unit = "commits"
	}

	if _, err := fmt.Fprintf(w, "Target: %s\nScanned %s: %d\nSkipped: %d\nFindings: %d\n",
		meta.Target, unit, result.Scanned, result.Skipped, len(result.Findings)); err != nil {
		return err
	}
	if result.Cancelled {
		if _, err := fmt.Fprintln(w, "Scan was cancelled, results are partial"); err != nil {
			return err
		}
	}

	counts := CountByRule(result.Findings)
	if len(counts) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "RULE\tDESCRIPTION\tCOUNT")
		for _, c := range counts {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", c.RuleID, c.Description, c.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(result.Diagnostics) > 0 {
		if _, err := fmt.Fprintf(w, "\nSkipped with diagnostics: %d\n", len(result.Diagnostics)); err != nil {
			return err
		}
		for _, d := range result.Diagnostics {
			subject := d.Path
			if d.Commit != "" {
				subject = d.Commit + " " + d.Path
			}
			if _, err := fmt.Fprintf(w, "  [%s] %s: %s\n", d.Kind, subject, d.Message); err != nil {
				return err
			}
		}
	}
	return nil
}
