// Package rules compiles raw rule definitions into an immutable RuleSet.
package rules

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// RuleSpec is a raw rule definition as supplied by configuration.
type RuleSpec struct {
	ID          string             `yaml:"id"`
	Description string             `yaml:"description"`
	Pattern     string             `yaml:"regex"`
	MinEntropy  Optional[float64]  `yaml:"entropy,omitempty"`
	Keywords    Optional[[]string] `yaml:"keywords,omitempty"`
	Tags        Optional[[]string] `yaml:"tags,omitempty"`
}

// Rule is a compiled detection unit.
type Rule struct {
	ID          string
	Description string
	Pattern     *regexp.Regexp
	MinEntropy  Optional[float64]
	// Keywords are lowercased at compile time.
	Keywords []string
	Tags     []string
}

// HasEntropyGate reports whether matches must clear a minimum entropy.
func (r *Rule) HasEntropyGate() bool {
	return r.MinEntropy.Set
}

// RuleSet is an ordered, immutable collection of compiled rules. It is safe to
// share between concurrent scans.
type RuleSet struct {
	rules     []*Rule
	byID      map[string]*Rule
	prefilter *prefilter
}

// Rules returns the rules in declaration order. The returned slice is a copy.
func (rs *RuleSet) Rules() []*Rule {
	if rs == nil {
		return nil
	}
	return slices.Clone(rs.rules)
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Get looks up a rule by id.
func (rs *RuleSet) Get(id string) (*Rule, bool) {
	if rs == nil {
		return nil, false
	}
	r, ok := rs.byID[id]
	return r, ok
}

// Candidates reports, per rule in declaration order, whether the rule must be
// evaluated on line. Rules without keywords are always candidates; keyword
// rules only when one of their keywords occurs in the lowercased line.
func (rs *RuleSet) Candidates(line string) []bool {
	if rs == nil {
		return nil
	}
	if rs.prefilter == nil {
		return newPrefilter(rs.rules).candidates(line)
	}
	return rs.prefilter.candidates(line)
}

// Each calls fn for every rule in declaration order without copying.
func (rs *RuleSet) Each(fn func(*Rule)) {
	if rs == nil {
		return
	}
	for _, r := range rs.rules {
		fn(r)
	}
}

// Compile validates and compiles specs. Empty ids, duplicate ids and invalid
// regular expressions are rejected with a *ConfigError; nothing is partially
// loaded.
func Compile(specs []RuleSpec) (*RuleSet, error) {
	rs := &RuleSet{
		rules: make([]*Rule, 0, len(specs)),
		byID:  make(map[string]*Rule, len(specs)),
	}

	for i, spec := range specs {
		id := strings.TrimSpace(spec.ID)
		if id == "" {
			return nil, &ConfigError{Index: i, Reason: "missing id"}
		}
		if _, exists := rs.byID[id]; exists {
			return nil, &ConfigError{RuleID: id, Index: i, Reason: "duplicate rule id"}
		}
		if spec.Pattern == "" {
			return nil, &ConfigError{RuleID: id, Index: i, Reason: "missing regex"}
		}

		pattern, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, &ConfigError{RuleID: id, Index: i, Reason: "invalid regex", Err: err}
		}
		if pattern.NumSubexp() > 0 {
			log.Trace().Str("rule", id).Msg("Rule has capture groups, first group is used as secret")
		}

		if minEntropy, ok := spec.MinEntropy.Get(); ok && minEntropy < 0 {
			return nil, &ConfigError{RuleID: id, Index: i, Reason: "entropy threshold must not be negative"}
		}

		description := spec.Description
		if description == "" {
			description = id
		}

		rule := &Rule{
			ID:          id,
			Description: description,
			Pattern:     pattern,
			MinEntropy:  spec.MinEntropy,
			Keywords:    normalizeKeywords(spec.Keywords.Value),
			Tags:        slices.Clone(spec.Tags.Value),
		}

		rs.rules = append(rs.rules, rule)
		rs.byID[id] = rule
	}

	rs.prefilter = newPrefilter(rs.rules)

	log.Debug().Int("count", len(rs.rules)).Msg("Compiled rules")
	return rs, nil
}

func normalizeKeywords(keywords []string) []string {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || slices.Contains(normalized, kw) {
			continue
		}
		normalized = append(normalized, kw)
	}
	return normalized
}
