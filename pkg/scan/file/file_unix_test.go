//go:build unix

package file

import (
	"context"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanNamedPipeIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipe")
	require.NoError(t, syscall.Mkfifo(path, 0o600))
	s := newScanner(t, 0, filter.UTF8)

	outcomes := make(chan Outcome, 1)
	go func() { outcomes <- s.Scan(context.Background(), path, "pipe") }()

	select {
	case out := <-outcomes:
		assert.Equal(t, Skipped, out.Status)
		assert.Nil(t, out.Diagnostic)
	case <-time.After(10 * time.Second):
		t.Fatal("scan blocked on a named pipe")
	}
}
