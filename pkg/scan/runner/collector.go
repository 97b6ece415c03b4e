package runner

import (
	"sync"
	"sync/atomic"

	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Collector gathers diagnostics reported concurrently by scan workers.
type Collector struct {
	mu          sync.Mutex
	diagnostics []types.Diagnostic
}

// Diagnose records a skipped item and logs it at debug level.
func (c *Collector) Diagnose(d types.Diagnostic) {
	log.Debug().Str("kind", string(d.Kind)).Str("path", d.Path).Str("commit", d.Commit).Msg(d.Message)
	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of everything recorded so far.
func (c *Collector) Diagnostics() []types.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Diagnostic{}, c.diagnostics...)
}

// Progress holds live counters for status output.
type Progress struct {
	files    atomic.Int64
	commits  atomic.Int64
	skipped  atomic.Int64
	findings atomic.Int64
}

// NewProgress returns zeroed counters.
func NewProgress() *Progress {
	return &Progress{}
}

func (p *Progress) AddFile() {
	if p != nil {
		p.files.Add(1)
	}
}

func (p *Progress) AddCommit() {
	if p != nil {
		p.commits.Add(1)
	}
}

func (p *Progress) AddSkipped() {
	if p != nil {
		p.skipped.Add(1)
	}
}

func (p *Progress) AddFindings(n int) {
	if p != nil && n > 0 {
		p.findings.Add(int64(n))
	}
}

// Snapshot returns files, commits, skipped and findings counted so far.
func (p *Progress) Snapshot() (files, commits, skipped, findings int64) {
	if p == nil {
		return 0, 0, 0, 0
	}
	return p.files.Load(), p.commits.Load(), p.skipped.Load(), p.findings.Load()
}

// StatusEvent renders the counters as a log event for the status shortcut.
func (p *Progress) StatusEvent() *zerolog.Event {
	files, commits, skipped, findings := p.Snapshot()
	return log.Info().
		Int64("filesScanned", files).
		Int64("commitsScanned", commits).
		Int64("skipped", skipped).
		Int64("findings", findings)
}
