// Package tree walks files and directories and scans every file that passes
// the path filter.
package tree

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CompassSecurity/leekscan/pkg/scan/file"
	"github.com/CompassSecurity/leekscan/pkg/scan/runner"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"
)

// Scanner scans directory trees and explicit file lists.
type Scanner struct {
	opts  runner.Options
	files *file.Scanner
}

// New builds a tree scanner.
func New(opts runner.Options) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{opts: opts, files: file.New(opts)}, nil
}

type target struct {
	path string
	// rel is matched against exclusions.
	rel string
	// display is attached to findings.
	display string
}

// Scan walks roots, which may mix files and directories, and returns findings
// in traversal order. Directories are walked in lexical order and symlinked
// directories are never descended into. When every root is missing the scan
// fails with types.ErrRootNotFound. A cancelled scan returns what was found so
// far with Cancelled set.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*types.Result, error) {
	result := &types.Result{Findings: []types.Finding{}, Diagnostics: []types.Diagnostic{}}
	collector := &runner.Collector{}

	targets, missing := s.discover(ctx, roots, collector)
	if len(roots) > 0 && missing == len(roots) {
		result.Diagnostics = collector.Diagnostics()
		return result, types.ErrRootNotFound
	}

	outcomes := make([]file.Outcome, len(targets))
	done := make([]bool, len(targets))

	log.Debug().Int("files", len(targets)).Int("workers", s.opts.WorkerCount()).Msg("Scanning files")
	group := parallel.Limited(ctx, s.opts.WorkerCount())
	for i, t := range targets {
		if ctx.Err() != nil {
			break
		}
		group.Go(func(ctx context.Context) {
			out := s.files.Scan(ctx, t.path, t.rel)
			for j := range out.Findings {
				out.Findings[j].FilePath = t.display
			}
			if out.Diagnostic != nil {
				out.Diagnostic.Path = t.display
			}
			outcomes[i] = out
			done[i] = true

			switch out.Status {
			case file.Scanned:
				s.opts.Progress.AddFile()
			case file.Skipped:
				s.opts.Progress.AddSkipped()
			}
			s.opts.Progress.AddFindings(len(out.Findings))
		})
	}
	group.Wait()

	result.Diagnostics = collector.Diagnostics()
	for i, out := range outcomes {
		if !done[i] {
			continue
		}
		result.Findings = append(result.Findings, out.Findings...)
		if out.Diagnostic != nil {
			log.Debug().Str("path", out.Diagnostic.Path).Str("kind", string(out.Diagnostic.Kind)).Msg(out.Diagnostic.Message)
			result.Diagnostics = append(result.Diagnostics, *out.Diagnostic)
		}
		switch out.Status {
		case file.Scanned:
			result.Scanned++
		case file.Skipped:
			result.Skipped++
		}
	}

	if ctx.Err() != nil {
		log.Info().Int("findings", len(result.Findings)).Msg("Tree scan cancelled, returning partial results")
		result.Cancelled = true
	}
	return result, nil
}

// discover resolves roots into the ordered list of candidate files. It returns
// the number of roots that do not exist.
func (s *Scanner) discover(ctx context.Context, roots []string, collector *runner.Collector) ([]target, int) {
	var targets []target
	seen := map[string]struct{}{}
	missing := 0
	labelled := len(roots) > 1
	filter := s.opts.FilterOrDefault()

	add := func(t target) {
		key := t.path
		if abs, err := filepath.Abs(t.path); err == nil {
			key = abs
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		targets = append(targets, t)
	}

	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}

		var info fs.FileInfo
		resolved, err := filepath.EvalSymlinks(root)
		if err == nil {
			info, err = os.Stat(resolved)
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing++
			}
			collector.Diagnose(types.Diagnostic{Kind: types.DiagnosticRoot, Path: root, Message: err.Error()})
			continue
		}

		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				collector.Diagnose(types.Diagnostic{Kind: types.DiagnosticRoot, Path: root, Message: "not a regular file or directory"})
				continue
			}
			add(target{path: resolved, rel: filepath.ToSlash(filepath.Clean(root)), display: filepath.ToSlash(filepath.Clean(root))})
			continue
		}

		walkErr := filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			rel, relErr := filepath.Rel(resolved, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)
			display := rel
			if labelled {
				display = filepath.ToSlash(filepath.Join(root, rel))
			}

			if err != nil {
				collector.Diagnose(types.Diagnostic{Kind: types.DiagnosticIO, Path: display, Message: err.Error()})
				if d != nil && d.IsDir() && path != resolved {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != resolved && filter.ExcludedDir(rel) {
					log.Trace().Str("dir", rel).Msg("Pruned excluded directory")
					return fs.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				info, statErr := os.Stat(path)
				if statErr != nil {
					collector.Diagnose(types.Diagnostic{Kind: types.DiagnosticIO, Path: display, Message: statErr.Error()})
					return nil
				}
				if !info.Mode().IsRegular() {
					return nil
				}
			} else if !d.Type().IsRegular() {
				return nil
			}

			add(target{path: path, rel: rel, display: display})
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
			collector.Diagnose(types.Diagnostic{Kind: types.DiagnosticRoot, Path: root, Message: walkErr.Error()})
		}
	}

	return targets, missing
}
