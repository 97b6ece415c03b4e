package result

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/rxwycdh/rxhash"
)

// Format names an output renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatSARIF   Format = "sarif"
	FormatSummary Format = "summary"
)

// Formats lists every supported format.
var Formats = []Format{FormatConsole, FormatJSON, FormatSARIF, FormatSummary}

// DisplayLength is how many characters of a secret are shown on the console.
const DisplayLength = 60

// PreviewLength is how many characters of a secret the JSON report keeps.
const PreviewLength = 20

// Meta describes the scan a report belongs to.
type Meta struct {
	ToolName    string
	ToolVersion string
	Target      string
	// History is set for commit history scans.
	History bool
}

// Reporter renders a scan result. Reporters only read the result.
type Reporter interface {
	Report(w io.Writer, result *types.Result, meta Meta) error
}

// New returns the reporter for format.
func New(format string) (Reporter, error) {
	switch Format(strings.ToLower(format)) {
	case FormatConsole, "":
		return ConsoleReporter{}, nil
	case FormatJSON:
		return JSONReporter{}, nil
	case FormatSARIF:
		return SARIFReporter{}, nil
	case FormatSummary:
		return SummaryReporter{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q, expected one of %s", format, strings.Join(formatNames(), ", "))
	}
}

func formatNames() []string {
	names := make([]string, 0, len(Formats))
	for _, f := range Formats {
		names = append(names, string(f))
	}
	return names
}

// fingerprintKey holds the fields that identify a finding across runs.
type fingerprintKey struct {
	RuleID   string
	FilePath string
	Line     int
	Column   int
	Commit   string
	Secret   string
}

// Fingerprint returns a stable identifier for a finding.
func Fingerprint(f types.Finding) string {
	hash, err := rxhash.HashStruct(fingerprintKey{
		RuleID:   f.RuleID,
		FilePath: f.FilePath,
		Line:     f.LineNumber,
		Column:   f.Column,
		Commit:   f.CommitID,
		Secret:   f.MatchedValue,
	})
	if err != nil {
		return ""
	}
	return hash
}

// RuleCount is the number of findings of one rule.
type RuleCount struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// CountByRule aggregates findings per rule, most frequent first.
func CountByRule(findings []types.Finding) []RuleCount {
	index := map[string]int{}
	var counts []RuleCount
	for _, f := range findings {
		i, ok := index[f.RuleID]
		if !ok {
			i = len(counts)
			index[f.RuleID] = i
			counts = append(counts, RuleCount{RuleID: f.RuleID, Description: f.Description})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].RuleID < counts[j].RuleID
	})
	return counts
}
