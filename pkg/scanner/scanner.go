package scanner

import (
	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	"github.com/CompassSecurity/leekscan/pkg/scanner/rules"
)

// Engine bundles a compiled rule set with the path filter built from the same
// configuration.
type Engine struct {
	Rules  *rules.RuleSet
	Filter *filter.Filter
	// Warnings are non-fatal configuration findings from rules.Lint.
	Warnings []string
}

// NewEngine loads the rules file at path (the embedded defaults when empty),
// compiles it and builds the exclusion policy. Configuration problems are
// returned before any scanning starts.
func NewEngine(path string, enc filter.TextEncoding) (*Engine, error) {
	cfg, err := rules.Load(path)
	if err != nil {
		return nil, err
	}
	return NewEngineFromFile(cfg, enc)
}

// NewEngineFromFile compiles an already parsed configuration.
func NewEngineFromFile(cfg *rules.File, enc filter.TextEncoding) (*Engine, error) {
	rs, err := rules.Compile(cfg.Rules)
	if err != nil {
		return nil, err
	}
	policy, err := filter.NewPolicy(cfg.Exclusions)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Rules:    rs,
		Filter:   filter.New(policy, enc),
		Warnings: rules.Lint(cfg.Rules),
	}, nil
}

// WithGitignore returns a copy of e whose filter also honours root/.gitignore.
func (e *Engine) WithGitignore(root string) (*Engine, error) {
	policy, err := e.Filter.Policy().WithGitignoreFile(root)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Rules:    e.Rules,
		Filter:   filter.New(policy, e.Filter.Encoding()),
		Warnings: e.Warnings,
	}, nil
}
