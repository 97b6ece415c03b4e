package runner

import (
	"runtime"
	"sync"
	"testing"

	"github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"default", 0, min(runtime.NumCPU(), MaxWorkers)},
		{"negative", -3, min(runtime.NumCPU(), MaxWorkers)},
		{"explicit", 4, 4},
		{"capped", 500, MaxWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Options{Workers: tt.workers}.WorkerCount())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Options{}.Validate(), ErrNoRules)

	rs, err := rules.Compile(nil)
	require.NoError(t, err)
	assert.NoError(t, Options{Rules: rs}.Validate())
}

func TestFilterOrDefault(t *testing.T) {
	f := Options{}.FilterOrDefault()
	require.NotNil(t, f)
	assert.True(t, f.Encoding().IsUTF8())
	assert.False(t, f.Excluded("node_modules/a.js"))
	assert.True(t, f.Excluded("image.png"))
}

func TestCollectorConcurrent(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Diagnose(types.Diagnostic{Kind: types.DiagnosticIO, Path: "a", Message: "gone"})
		}()
	}
	wg.Wait()

	diags := c.Diagnostics()
	assert.Len(t, diags, 50)

	diags[0].Path = "changed"
	assert.Equal(t, "a", c.Diagnostics()[0].Path)
}

func TestProgress(t *testing.T) {
	p := NewProgress()
	p.AddFile()
	p.AddFile()
	p.AddCommit()
	p.AddSkipped()
	p.AddFindings(3)
	p.AddFindings(0)

	files, commits, skipped, findings := p.Snapshot()
	assert.Equal(t, int64(2), files)
	assert.Equal(t, int64(1), commits)
	assert.Equal(t, int64(1), skipped)
	assert.Equal(t, int64(3), findings)

	var nilProgress *Progress
	assert.NotPanics(t, func() {
		nilProgress.AddFile()
		nilProgress.AddFindings(1)
	})
	files, _, _, _ = nilProgress.Snapshot()
	assert.Zero(t, files)
}
