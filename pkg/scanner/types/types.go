package types

import (
	"errors"
	"slices"
)

// ErrRootNotFound is returned when none of the scan roots exist.
var ErrRootNotFound = errors.New("scan root does not exist")

// Finding is one occurrence of a rule matching scanned content. Findings are
// self-contained snapshots and are not mutated after creation.
type Finding struct {
	RuleID      string   `json:"rule_id"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	FilePath    string   `json:"file_path"`
	LineNumber  int      `json:"line_number"`
	// Column and EndColumn are 1-based byte offsets of the secret within the line.
	Column    int `json:"column"`
	EndColumn int `json:"end_column"`
	// MatchedValue is the full, untruncated secret. Truncation is up to reporters.
	MatchedValue string `json:"-"`
	// Entropy is only set when the rule has an entropy gate.
	Entropy *float64 `json:"entropy,omitempty"`
	// Charset is an advisory hex/base64 classification of MatchedValue.
	Charset  string `json:"charset,omitempty"`
	CommitID string `json:"commit_id,omitempty"`
}

// WithLocation returns a copy of f attributed to path and line.
func (f Finding) WithLocation(path string, line int) Finding {
	f.FilePath = path
	f.LineNumber = line
	f.Tags = slices.Clone(f.Tags)
	return f
}

// WithCommit returns a copy of f attributed to commit.
func (f Finding) WithCommit(commit string) Finding {
	f.CommitID = commit
	f.Tags = slices.Clone(f.Tags)
	return f
}

// DiagnosticKind classifies a skipped item.
type DiagnosticKind string

const (
	// DiagnosticIO is an unreadable file, broken symlink or vanished path.
	DiagnosticIO DiagnosticKind = "io"
	// DiagnosticRoot is an unreadable or missing scan root.
	DiagnosticRoot DiagnosticKind = "root"
	// DiagnosticCommit is an unreadable or corrupt commit object.
	DiagnosticCommit DiagnosticKind = "commit"
	// DiagnosticTooLarge is a file above the configured size limit.
	DiagnosticTooLarge DiagnosticKind = "too-large"
)

// Diagnostic records an item that was skipped without aborting the scan.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Path    string         `json:"path,omitempty"`
	Commit  string         `json:"commit,omitempty"`
	Message string         `json:"message"`
}

// Result is the outcome of a tree or history scan.
type Result struct {
	Findings    []Finding    `json:"findings"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Scanned counts files (tree scans) or commits (history scans) processed.
	Scanned int `json:"scanned"`
	// Skipped counts items excluded by policy, binary sniffing or size.
	Skipped int `json:"skipped"`
	// Cancelled is set when the scan stopped early on request. The findings
	// collected until then are still valid.
	Cancelled bool `json:"cancelled"`
}
