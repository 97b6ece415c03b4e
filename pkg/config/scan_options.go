// Package config provides the scan option defaults shared by the CLI commands
// and the validation helpers for them.
package config

import (
	"runtime"

	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
)

// CommonScanOptions contains configuration fields shared by tree and history
// scans.
type CommonScanOptions struct {
	// RulesFile is the YAML rules file. Empty selects the embedded defaults.
	RulesFile string
	// MaxScanGoRoutines controls the number of concurrent scanning workers
	MaxScanGoRoutines int
	// MaxFileSize is the human-readable size above which files are skipped
	MaxFileSize string
	// Encoding is the IANA name of the text encoding files are read with
	Encoding string
	// Gitignore additionally honours the scan root's .gitignore
	Gitignore bool
	// Format selects the reporter
	Format string
	// Output is the report file. Empty writes to stdout.
	Output string
	// ExitCode makes the process exit with 1 when secrets were found
	ExitCode bool
}

// HistoryScanOptions adds the commit walk settings.
type HistoryScanOptions struct {
	Enabled    bool
	MaxCommits int
	Revision   string
	All        bool
	Order      string
}

// DefaultCommonScanOptions returns sensible default values for common scan
// options. The worker count follows the number of CPUs.
func DefaultCommonScanOptions() CommonScanOptions {
	return CommonScanOptions{
		MaxScanGoRoutines: min(runtime.NumCPU(), 100),
		MaxFileSize:       "0",
		Encoding:          filter.DefaultEncoding,
		Format:            "console",
		ExitCode:          true,
	}
}

// DefaultHistoryScanOptions returns the history defaults: newest first from
// HEAD without a commit limit.
func DefaultHistoryScanOptions() HistoryScanOptions {
	return HistoryScanOptions{
		Revision: "HEAD",
		Order:    "newest",
	}
}
