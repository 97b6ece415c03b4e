package logging

import (
	"os"
	"sync"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func SetLogLevel(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("Verbose log output enabled")
	}
}

// StatusFN builds the event printed by the status shortcut.
type StatusFN func() *zerolog.Event

var (
	statusHookMutex sync.RWMutex
	statusHook      StatusFN
)

// RegisterStatusHook sets the function the "s" shortcut prints.
func RegisterStatusHook(hook StatusFN) {
	statusHookMutex.Lock()
	defer statusHookMutex.Unlock()
	statusHook = hook
}

// GetStatusHook returns the registered status hook or a placeholder.
func GetStatusHook() StatusFN {
	statusHookMutex.RLock()
	defer statusHookMutex.RUnlock()
	if statusHook != nil {
		return statusHook
	}
	return func() *zerolog.Event {
		return log.Info().Str("status", "no scan running")
	}
}

var shortcutLevels = map[string]zerolog.Level{
	"t": zerolog.TraceLevel,
	"d": zerolog.DebugLevel,
	"i": zerolog.InfoLevel,
	"w": zerolog.WarnLevel,
	"e": zerolog.ErrorLevel,
}

// interrupt delivers SIGINT to the own process. The keyboard listener puts the
// terminal into raw mode, so Ctrl+C arrives as a key press instead of a signal.
var interrupt = func() {
	p, err := os.FindProcess(os.Getpid())
	if err == nil {
		err = p.Signal(os.Interrupt)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed raising interrupt")
	}
}

// HandleShortcut applies a single key press. It reports whether the listener
// should stop. Ctrl+C additionally interrupts the process.
func HandleShortcut(key keys.Key) bool {
	switch key.Code {
	case keys.CtrlC:
		interrupt()
		return true
	case keys.Escape:
		return true
	case keys.RuneKey:
		if level, ok := shortcutLevels[key.String()]; ok {
			zerolog.SetGlobalLevel(level)
			log.Info().Str("logLevel", level.String()).Msg("New Log level")
		}
		if key.String() == "s" {
			if event := GetStatusHook()(); event != nil {
				event.Msg("Status")
			}
		}
	}
	return false
}

// ShortcutListeners blocks reading key presses until Escape or Ctrl+C.
func ShortcutListeners() {
	err := keyboard.Listen(func(key keys.Key) (stop bool, err error) {
		return HandleShortcut(key), nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed hooking keyboard bindings")
	}
}
