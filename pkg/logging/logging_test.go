package logging

import (
	"bytes"
	"context"
	"testing"
	"time"

	"atomicgo.dev/keyboard/keys"
	"github.com/CompassSecurity/leekscan/pkg/system"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	SetLogLevel(false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetLogLevel(true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestHandleShortcutLevels(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	for key, level := range shortcutLevels {
		stop := HandleShortcut(keys.Key{Code: keys.RuneKey, Runes: []rune(key)})
		assert.False(t, stop)
		assert.Equal(t, level, zerolog.GlobalLevel(), key)
	}
}

func TestHandleShortcutStop(t *testing.T) {
	original := interrupt
	defer func() { interrupt = original }()
	interrupts := 0
	interrupt = func() { interrupts++ }

	assert.True(t, HandleShortcut(keys.Key{Code: keys.Escape}))
	assert.Zero(t, interrupts, "escape only stops the listener")

	assert.True(t, HandleShortcut(keys.Key{Code: keys.CtrlC}))
	assert.Equal(t, 1, interrupts)
}

func TestHandleShortcutCtrlCCancelsScan(t *testing.T) {
	ctx, stop := system.CancelOnInterrupt(context.Background(), nil)
	defer stop()

	assert.True(t, HandleShortcut(keys.Key{Code: keys.CtrlC}))
	require.Eventually(t, func() bool { return ctx.Err() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestHandleShortcutStatus(t *testing.T) {
	originalLogger := log.Logger
	defer func() { log.Logger = originalLogger }()
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	RegisterStatusHook(func() *zerolog.Event {
		return log.Info().Int("findings", 3)
	})
	defer RegisterStatusHook(nil)

	HandleShortcut(keys.Key{Code: keys.RuneKey, Runes: []rune("s")})
	assert.Contains(t, buf.String(), `"findings":3`)
	assert.Contains(t, buf.String(), "Status")
}

func TestDefaultStatusHook(t *testing.T) {
	RegisterStatusHook(nil)
	assert.NotNil(t, GetStatusHook())
}
