// Package file streams a single file through the path filter and the line
// matcher.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/scan/runner"
	"github.com/CompassSecurity/leekscan/pkg/scanner/engine"
	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	"github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"golang.org/x/text/transform"
)

// cancelCheckInterval is how many lines are matched between context checks.
const cancelCheckInterval = 1024

// Status describes what happened to a file.
type Status int

const (
	// Scanned means every line went through the matcher.
	Scanned Status = iota
	// Skipped means the file was excluded, binary or too large.
	Skipped
	// Failed means an I/O error stopped the file. A diagnostic is attached.
	Failed
	// Cancelled means the context ended while reading.
	Cancelled
)

// Outcome is the result of scanning one file.
type Outcome struct {
	Findings   []types.Finding
	Status     Status
	Diagnostic *types.Diagnostic
}

// Scanner scans individual files. It holds no per-file state and is safe for
// concurrent use.
type Scanner struct {
	rules       *rules.RuleSet
	filter      *filter.Filter
	maxFileSize int64
}

// New builds a Scanner from the shared scan options.
func New(opts runner.Options) *Scanner {
	return &Scanner{
		rules:       opts.Rules,
		filter:      opts.FilterOrDefault(),
		maxFileSize: opts.MaxFileSize,
	}
}

// Scan checks the file at path against the filter and, if it qualifies, matches
// it line by line. relPath is used for exclusion matching and is attached to
// every finding.
func (s *Scanner) Scan(ctx context.Context, path, relPath string) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: Cancelled}
	}
	if s.filter.Excluded(relPath) {
		return Outcome{Status: Skipped}
	}

	// Opening a named pipe blocks until a writer appears.
	if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() {
		return Outcome{Status: Skipped}
	}

	// #nosec G304 - path comes from the walked scan root
	fh, err := os.Open(path)
	if err != nil {
		return failed(relPath, err)
	}
	defer func() { _ = fh.Close() }()

	info, err := fh.Stat()
	if err != nil {
		return failed(relPath, err)
	}
	if !info.Mode().IsRegular() {
		return Outcome{Status: Skipped}
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return Outcome{
			Status: Skipped,
			Diagnostic: &types.Diagnostic{
				Kind:    types.DiagnosticTooLarge,
				Path:    relPath,
				Message: fmt.Sprintf("file size %s exceeds limit of %s", format.HumanSize(info.Size()), format.HumanSize(s.maxFileSize)),
			},
		}
	}

	prefix, err := filter.ReadPrefix(fh)
	if err != nil {
		return failed(relPath, err)
	}
	if s.filter.IsBinary(prefix) {
		return Outcome{Status: Skipped}
	}

	findings, err := s.ScanReader(ctx, io.MultiReader(bytes.NewReader(prefix), fh), relPath)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Findings: findings, Status: Cancelled}
		}
		out := failed(relPath, err)
		out.Findings = findings
		return out
	}
	return Outcome{Findings: findings, Status: Scanned}
}

// ScanReader decodes r under the configured encoding and matches it line by
// line. Line numbers are 1-based. Findings gathered before an error are
// returned alongside it.
func (s *Scanner) ScanReader(ctx context.Context, r io.Reader, relPath string) ([]types.Finding, error) {
	reader := bufio.NewReader(transform.NewReader(r, s.filter.Encoding().NewDecoder()))

	var findings []types.Finding
	lineNumber := 0
	for {
		line, readErr := reader.ReadString('\n')
		if len(line) > 0 {
			lineNumber++
			if lineNumber == 1 {
				line = strings.TrimPrefix(line, "\uFEFF")
			}
			for _, f := range engine.MatchLine(trimEOL(line), s.rules) {
				findings = append(findings, f.WithLocation(relPath, lineNumber))
			}
			if lineNumber%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return findings, err
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return findings, nil
			}
			return findings, readErr
		}
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

func failed(relPath string, err error) Outcome {
	return Outcome{
		Status: Failed,
		Diagnostic: &types.Diagnostic{
			Kind:    types.DiagnosticIO,
			Path:    relPath,
			Message: err.Error(),
		},
	}
}
