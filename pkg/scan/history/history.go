// Package history replays the lines added by each commit of a git repository
// through the line matcher.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/scan/runner"
	"github.com/CompassSecurity/leekscan/pkg/scanner/engine"
	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"
)

// ErrNotRepository is returned when the scan path is not inside a git
// repository.
var ErrNotRepository = errors.New("not a git repository")

// DefaultRevision is where the walk starts when no revision is configured.
const DefaultRevision = "HEAD"

// Options configures a history scan.
type Options struct {
	runner.Options
	// Revision is the commit-ish the walk starts from.
	Revision string
	// All walks every ref instead of Revision.
	All bool
	// Order selects newest-first (default) or oldest-first traversal.
	Order Order
	// MaxCommits bounds the walk. Zero means unbounded.
	MaxCommits int
}

// Scanner walks the history of one repository. Repository handles are not
// shared between goroutines: every worker reads through its own handle.
type Scanner struct {
	path   string
	opts   Options
	repo   *git.Repository
	filter *filter.Filter
}

// Open locates the repository containing path.
func Open(path string, opts Options) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxCommits < 0 {
		return nil, fmt.Errorf("max commits must not be negative, got %d", opts.MaxCommits)
	}
	if _, err := ParseOrder(string(opts.Order)); err != nil {
		return nil, err
	}

	repo, err := openRepository(path)
	if err != nil {
		return nil, err
	}
	return &Scanner{path: path, opts: opts, repo: repo, filter: opts.FilterOrDefault()}, nil
}

func openRepository(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRepository)
		}
		return nil, err
	}
	return repo, nil
}

// Commits returns the lazy sequence of commits selected by the options. An
// unborn HEAD yields an empty sequence.
func (s *Scanner) Commits() (*Walk, error) {
	if s.opts.All {
		return newWalk(s.repo, plumbing.ZeroHash, true, s.opts.Order, s.opts.MaxCommits)
	}

	rev := s.opts.Revision
	if rev == "" {
		rev = DefaultRevision
	}
	start, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if rev == DefaultRevision && errors.Is(err, plumbing.ErrReferenceNotFound) {
			log.Debug().Str("repo", s.path).Msg("Repository has no commits")
			return emptyWalk(), nil
		}
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	return newWalk(s.repo, *start, false, s.opts.Order, s.opts.MaxCommits)
}

type commitOutcome struct {
	done bool
	// failed marks a commit whose objects could not be read. It counts as
	// skipped, not scanned.
	failed      bool
	findings    []types.Finding
	diagnostics []types.Diagnostic
	skipped     int
}

// Scan walks the selected commits and matches every added line. Findings are
// ordered by traversal position, then by file and line. A cancelled scan
// returns the commits completed so far with Cancelled set. An unreadable
// commit is counted as skipped and reported with a diagnostic. A log iterator failure ends the walk
// with a diagnostic.
func (s *Scanner) Scan(ctx context.Context) (*types.Result, error) {
	result := &types.Result{Findings: []types.Finding{}, Diagnostics: []types.Diagnostic{}}

	walk, err := s.Commits()
	if err != nil {
		return nil, err
	}
	defer walk.Close()

	// The walk reads through s.repo, so workers get handles of their own.
	workers := s.opts.WorkerCount()
	pool := make(chan *git.Repository, workers)
	for i := 0; i < workers; i++ {
		repo, err := openRepository(s.path)
		if err != nil {
			return nil, err
		}
		pool <- repo
	}

	collector := &runner.Collector{}
	var slots []*commitOutcome

	log.Debug().Str("repo", s.path).Int("workers", workers).Int("maxCommits", s.opts.MaxCommits).Msg("Scanning history")
	group := parallel.Limited(ctx, workers)
	for ctx.Err() == nil {
		hash, err := walk.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			collector.Diagnose(types.Diagnostic{Kind: types.DiagnosticCommit, Message: "history walk stopped: " + err.Error()})
			break
		}

		slot := &commitOutcome{}
		slots = append(slots, slot)
		group.Go(func(ctx context.Context) {
			if ctx.Err() != nil {
				return
			}
			repo := <-pool
			defer func() { pool <- repo }()

			*slot = s.scanCommit(ctx, repo, hash)
			switch {
			case slot.failed:
				s.opts.Progress.AddSkipped()
			case slot.done:
				s.opts.Progress.AddCommit()
				s.opts.Progress.AddFindings(len(slot.findings))
			}
		})
	}
	group.Wait()

	result.Diagnostics = append(result.Diagnostics, collector.Diagnostics()...)
	for _, slot := range slots {
		if !slot.done {
			continue
		}
		if slot.failed {
			result.Skipped++
		} else {
			result.Scanned++
		}
		result.Skipped += slot.skipped
		result.Findings = append(result.Findings, slot.findings...)
		result.Diagnostics = append(result.Diagnostics, slot.diagnostics...)
	}

	if ctx.Err() != nil {
		log.Info().Int("commits", result.Scanned).Msg("History scan cancelled, returning partial results")
		result.Cancelled = true
	}
	return result, nil
}

// scanCommit diffs one commit against its first parent, or the empty tree for
// a root commit, and matches the added lines. done stays false when ctx ends
// before the commit is complete.
func (s *Scanner) scanCommit(ctx context.Context, repo *git.Repository, hash plumbing.Hash) commitOutcome {
	var out commitOutcome
	id := hash.String()
	commitFailed := func(msg string, err error) commitOutcome {
		return commitOutcome{
			done:   true,
			failed: true,
			diagnostics: []types.Diagnostic{{
				Kind:    types.DiagnosticCommit,
				Commit:  id,
				Message: fmt.Sprintf("%s: %v", msg, err),
			}},
		}
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return commitFailed("failed to read commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return commitFailed("failed to read commit tree", err)
	}

	parentTree := &object.Tree{}
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return commitFailed("failed to read first parent", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return commitFailed("failed to read parent tree", err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		if ctx.Err() != nil {
			return out
		}
		return commitFailed("failed to diff commit", err)
	}

	log.Trace().Str("commit", format.ShortHash(id)).Int("changes", len(changes)).Msg("Scanning commit")
	for _, change := range changes {
		if ctx.Err() != nil {
			return out
		}
		findings, diag, skipped := s.scanChange(ctx, change, id)
		out.findings = append(out.findings, findings...)
		if diag != nil {
			out.diagnostics = append(out.diagnostics, *diag)
		}
		if skipped {
			out.skipped++
		}
	}

	out.done = true
	return out
}

// scanChange matches the lines a single file change adds. Deletions, excluded
// paths, submodules and binary or oversized blobs contribute nothing.
func (s *Scanner) scanChange(ctx context.Context, change *object.Change, commitID string) ([]types.Finding, *types.Diagnostic, bool) {
	path := change.To.Name
	if path == "" {
		return nil, nil, false
	}
	if change.To.TreeEntry.Mode == filemode.Submodule {
		return nil, nil, false
	}
	if s.filter.Excluded(path) {
		return nil, nil, true
	}

	diagnose := func(kind types.DiagnosticKind, msg string) *types.Diagnostic {
		return &types.Diagnostic{Kind: kind, Path: path, Commit: commitID, Message: msg}
	}

	blob, err := change.To.Tree.TreeEntryFile(&change.To.TreeEntry)
	if err != nil {
		return nil, diagnose(types.DiagnosticIO, err.Error()), false
	}
	if s.opts.MaxFileSize > 0 && blob.Size > s.opts.MaxFileSize {
		msg := fmt.Sprintf("blob size %s exceeds limit of %s", format.HumanSize(blob.Size), format.HumanSize(s.opts.MaxFileSize))
		return nil, diagnose(types.DiagnosticTooLarge, msg), true
	}
	binary, err := s.isBinary(blob)
	if err != nil {
		return nil, diagnose(types.DiagnosticIO, err.Error()), false
	}
	if binary {
		return nil, nil, true
	}

	patch, err := change.PatchContext(ctx)
	if err != nil {
		return nil, diagnose(types.DiagnosticCommit, "failed to compute patch: "+err.Error()), false
	}

	var findings []types.Finding
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			continue
		}
		for _, added := range addedLines(fp.Chunks()) {
			line := s.filter.Encoding().DecodeString(added.text)
			for _, f := range engine.MatchLine(line, s.opts.Rules) {
				findings = append(findings, f.WithLocation(path, added.number).WithCommit(commitID))
			}
		}
	}
	return findings, nil, false
}

func (s *Scanner) isBinary(blob *object.File) (bool, error) {
	r, err := blob.Reader()
	if err != nil {
		return false, err
	}
	defer func() { _ = r.Close() }()

	prefix, err := filter.ReadPrefix(r)
	if err != nil {
		return false, err
	}
	return s.filter.IsBinary(prefix), nil
}

type addedLine struct {
	number int
	text   string
}

// addedLines returns the added lines of a file patch with their 1-based line
// numbers in the post-change file. Deleted lines do not advance the counter.
func addedLines(chunks []fdiff.Chunk) []addedLine {
	var out []addedLine
	next := 1
	for _, chunk := range chunks {
		lines := splitLines(chunk.Content())
		switch chunk.Type() {
		case fdiff.Equal:
			next += len(lines)
		case fdiff.Add:
			for _, l := range lines {
				out = append(out, addedLine{number: next, text: l})
				next++
			}
		case fdiff.Delete:
		}
	}
	return out
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
