//go:build unix

package tree

import (
	"context"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanTreeFifoRootIsDiagnostic(t *testing.T) {
	root := buildTree(t)
	fifo := filepath.Join(t.TempDir(), "pipe")
	require.NoError(t, syscall.Mkfifo(fifo, 0o600))

	s := newScanner(t, 2)
	var (
		result *types.Result
		err    error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err = s.Scan(context.Background(), []string{fifo, root})
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan blocked on a named pipe")
	}

	require.NoError(t, err)
	assert.Len(t, result.Findings, 4)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, types.DiagnosticRoot, result.Diagnostics[0].Kind)
	assert.Equal(t, fifo, result.Diagnostics[0].Path)
	assert.Contains(t, result.Diagnostics[0].Message, "not a regular file")
}
