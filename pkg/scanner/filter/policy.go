package filter

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"
)

const (
	globPrefix  = "glob:"
	regexPrefix = "regex:"
)

type matcher interface {
	Match(path string) bool
	String() string
}

type regexMatcher struct {
	source string
	re     *regexp.Regexp
}

func (m regexMatcher) Match(path string) bool { return m.re.MatchString(path) }
func (m regexMatcher) String() string         { return m.source }

type globMatcher struct {
	source string
	g      glob.Glob
}

func (m globMatcher) Match(path string) bool { return m.g.Match(path) }
func (m globMatcher) String() string         { return m.source }

type gitignoreMatcher struct {
	source string
	gi     *ignore.GitIgnore
}

func (m gitignoreMatcher) Match(path string) bool { return m.gi.MatchesPath(path) }
func (m gitignoreMatcher) String() string         { return m.source }

// Policy is an ordered, immutable set of path exclusion predicates. Paths are
// matched in slash-separated form relative to the scan root.
type Policy struct {
	matchers []matcher
}

// NewPolicy compiles exclusion patterns. A plain pattern is a regular
// expression searched anywhere in the path, "regex:" makes that explicit and
// "glob:" selects a glob with '/' as separator.
func NewPolicy(patterns []string) (*Policy, error) {
	p := &Policy{matchers: make([]matcher, 0, len(patterns))}
	for i, pattern := range patterns {
		m, err := compilePattern(pattern)
		if err != nil {
			return nil, &rules.ConfigError{Index: i, Pattern: pattern, Reason: "invalid exclusion pattern", Err: err}
		}
		p.matchers = append(p.matchers, m)
	}
	return p, nil
}

func compilePattern(pattern string) (matcher, error) {
	switch {
	case strings.HasPrefix(pattern, globPrefix):
		g, err := glob.Compile(strings.TrimPrefix(pattern, globPrefix), '/')
		if err != nil {
			return nil, err
		}
		return globMatcher{source: pattern, g: g}, nil
	case strings.HasPrefix(pattern, regexPrefix):
		re, err := regexp.Compile(strings.TrimPrefix(pattern, regexPrefix))
		if err != nil {
			return nil, err
		}
		return regexMatcher{source: pattern, re: re}, nil
	default:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return regexMatcher{source: pattern, re: re}, nil
	}
}

// WithGitignoreLines returns a copy of p that additionally excludes paths
// matched by the given .gitignore lines.
func (p *Policy) WithGitignoreLines(source string, lines []string) *Policy {
	next := &Policy{matchers: append(p.list(), gitignoreMatcher{
		source: source,
		gi:     ignore.CompileIgnoreLines(lines...),
	})}
	return next
}

// WithGitignoreFile loads root/.gitignore when present. A missing file leaves
// the policy unchanged.
func (p *Policy) WithGitignoreFile(root string) (*Policy, error) {
	path := filepath.Join(root, ".gitignore")
	// #nosec G304 - reading .gitignore from a scan root chosen by the user
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, err
	}
	log.Debug().Str("file", path).Msg("Honouring .gitignore")
	return p.WithGitignoreLines(path, strings.Split(string(content), "\n")), nil
}

func (p *Policy) list() []matcher {
	if p == nil {
		return nil
	}
	return append([]matcher(nil), p.matchers...)
}

// Excluded reports whether the file at relPath must be skipped.
func (p *Policy) Excluded(relPath string) bool {
	if p == nil {
		return false
	}
	path := normalize(relPath)
	for _, m := range p.matchers {
		if m.Match(path) {
			log.Trace().Str("path", path).Str("pattern", m.String()).Msg("Excluded by pattern")
			return true
		}
	}
	return false
}

// ExcludedDir reports whether the directory at relPath must not be descended
// into. The path is tested with a trailing slash so that patterns such as
// "node_modules/" prune the directory itself.
func (p *Policy) ExcludedDir(relPath string) bool {
	path := normalize(relPath)
	if path == "" || path == "." {
		return false
	}
	return p.Excluded(strings.TrimSuffix(path, "/") + "/")
}

// Patterns returns the source text of every predicate in order.
func (p *Policy) Patterns() []string {
	out := []string{}
	for _, m := range p.list() {
		out = append(out, m.String())
	}
	return out
}

func normalize(path string) string {
	path = filepath.ToSlash(path)
	return strings.TrimPrefix(path, "./")
}
