package runner

import (
	"errors"
	"runtime"

	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	"github.com/CompassSecurity/leekscan/pkg/scanner/rules"
)

// MaxWorkers caps the worker pool regardless of the configured value.
const MaxWorkers = 100

// ErrNoRules is returned when a scan is started without a compiled rule set.
var ErrNoRules = errors.New("no rule set configured")

// Options is the configuration shared by tree and history scans. Rules and
// Filter are immutable and shared across workers without locking.
type Options struct {
	Rules  *rules.RuleSet
	Filter *filter.Filter
	// Workers bounds the pool. Zero means one worker per CPU.
	Workers int
	// MaxFileSize skips larger files with a diagnostic. Zero disables the limit.
	MaxFileSize int64
	// Progress is optional and updated while scanning.
	Progress *Progress
}

// Validate checks that the options can drive a scan.
func (o Options) Validate() error {
	if o.Rules == nil {
		return ErrNoRules
	}
	return nil
}

// WorkerCount returns the effective pool size.
func (o Options) WorkerCount() int {
	n := o.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return min(max(n, 1), MaxWorkers)
}

// FilterOrDefault returns the configured filter, or a UTF-8 filter without
// exclusions.
func (o Options) FilterOrDefault() *filter.Filter {
	if o.Filter != nil {
		return o.Filter
	}
	return filter.New(nil, filter.UTF8)
}
