// Package common provides the logger setup, shared flags and process exit
// handling of the leekscan binary.
package common

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/CompassSecurity/leekscan/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"golang.org/x/term"
)

// Version information - set via ldflags during build
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFindings = 1
	ExitFatal    = 2
)

// Log configuration
var (
	originalTermState *term.State
	JsonLogoutput     bool
	LogFile           string
	LogColor          bool
	LogDebug          bool
	LogLevel          string
)

var exitCode atomic.Int32

// SetExitCode records the code the process exits with after the command
// returns.
func SetExitCode(code int) {
	exitCode.Store(int32(code))
}

// ExitCode returns the recorded exit code.
func ExitCode() int {
	return int(exitCode.Load())
}

// CustomWriter wraps an os.File with proper cross-platform newline handling
type CustomWriter struct {
	Writer *os.File
}

func (cw *CustomWriter) Write(p []byte) (n int, err error) {
	originalLen := len(p)

	p = bytes.TrimSuffix(p, []byte("\n"))

	// necessary as to: https://github.com/rs/zerolog/blob/master/log.go#L474
	newlineChars := []byte("\n")
	if runtime.GOOS == "windows" {
		newlineChars = []byte("\n\r")
	}

	modified := append(p, newlineChars...)

	written, err := cw.Writer.Write(modified)
	if err != nil {
		return 0, err
	}

	if written != len(modified) {
		return 0, io.ErrShortWrite
	}

	return originalLen, nil
}

// FatalExitWriter sits between the logger and its output. It lets fatal
// entries through, restores the terminal and exits with ExitFatal before
// zerolog would exit with its own code.
type FatalExitWriter struct {
	underlying io.Writer
	exit       func(int)
}

// NewFatalExitWriter wraps w.
func NewFatalExitWriter(w io.Writer) *FatalExitWriter {
	return &FatalExitWriter{underlying: w, exit: os.Exit}
}

func (w *FatalExitWriter) Write(p []byte) (n int, err error) {
	if gjson.GetBytes(p, zerolog.LevelFieldName).String() == zerolog.LevelFatalValue {
		n, err = w.underlying.Write(p)
		RestoreTerminalState()
		w.exit(ExitFatal)
		return n, err
	}
	return w.underlying.Write(p)
}

// SaveTerminalState saves the current terminal state for later restoration
func SaveTerminalState() {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		state, err := term.GetState(int(os.Stdin.Fd()))
		if err == nil {
			originalTermState = state
		}
	}
}

// RestoreTerminalState restores the terminal to its saved state
func RestoreTerminalState() {
	if originalTermState != nil {
		_ = term.Restore(int(os.Stdin.Fd()), originalTermState)
	}
}

// InitLogger initializes the zerolog logger with the configured options
func InitLogger(cmd *cobra.Command) {
	defaultOut := &CustomWriter{Writer: os.Stderr}
	colorEnabled := LogColor

	if LogFile != "" {
		// #nosec G304 - User-provided log file path via --logfile flag
		runLogFile, err := os.OpenFile(
			LogFile,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			format.FileUserReadWrite,
		)
		if err != nil {
			panic(err)
		}
		defaultOut = &CustomWriter{Writer: runLogFile}

		rootFlags := cmd.Root().PersistentFlags()
		if !rootFlags.Changed("color") {
			colorEnabled = false
		}
	}

	log.Logger = newLogger(defaultOut, JsonLogoutput, colorEnabled)
}

func newLogger(out io.Writer, jsonOutput, colorEnabled bool) zerolog.Logger {
	var sink io.Writer = out
	if !jsonOutput {
		sink = zerolog.ConsoleWriter{
			Out:         out,
			TimeFormat:  time.RFC3339,
			NoColor:     !colorEnabled,
			FormatLevel: formatLevelWithHitColor(colorEnabled),
		}
	}
	// The hit writer rewrites the level of finding events before the sink
	// renders them.
	hitWriter := logging.NewHitLevelWriter(sink)
	logging.SetGlobalHitWriter(hitWriter)
	return zerolog.New(NewFatalExitWriter(hitWriter)).With().Timestamp().Logger()
}

// formatLevelWithHitColor returns a level formatter that prints the "hit"
// level in magenta.
func formatLevelWithHitColor(colorEnabled bool) zerolog.Formatter {
	return func(i interface{}) string {
		level, ok := i.(string)
		if !ok {
			return ""
		}

		if !colorEnabled {
			return level
		}

		switch level {
		case "hit":
			return "\x1b[35m" + level + "\x1b[0m"
		case "trace":
			return "\x1b[90m" + level + "\x1b[0m"
		case "info":
			return "\x1b[32m" + level + "\x1b[0m"
		case "warn":
			return "\x1b[33m" + level + "\x1b[0m"
		case "error", "fatal", "panic":
			return "\x1b[31m" + level + "\x1b[0m"
		default:
			return level
		}
	}
}

// SetGlobalLogLevel sets the global log level based on the configured options
func SetGlobalLogLevel(cmd *cobra.Command) {
	if LogLevel != "" {
		level, err := logging.ParseLevel(LogLevel)
		if err != nil {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Warn().Str("logLevelSpecified", LogLevel).Msg("Invalid log level, defaulting to info")
			return
		}
		zerolog.SetGlobalLevel(level)
		log.Debug().Str("logLevel", level.String()).Msg("Log level set (explicit)")
		return
	}

	if LogDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("Log level set to debug (-v)")
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// AddCommonFlags adds the common logging and output flags to a cobra command
func AddCommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&JsonLogoutput, "json", "", false, "Use JSON as log output format")
	cmd.PersistentFlags().StringVarP(&LogFile, "logfile", "l", "", "Log output to a file")
	cmd.PersistentFlags().BoolVarP(&LogDebug, "verbose", "v", false, "Enable debug logging (shortcut for --log-level=debug)")
	cmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Set log level globally (trace, debug, info, warn, error). Example: --log-level=warn")
	cmd.PersistentFlags().BoolVar(&LogColor, "color", true, "Enable colored log output (auto-disabled when using --logfile)")
}

// SetupPersistentPreRun sets up the PersistentPreRun handler for logging initialization
func SetupPersistentPreRun(cmd *cobra.Command) {
	cmd.PersistentPreRun = func(c *cobra.Command, args []string) {
		InitLogger(c)
		SetGlobalLogLevel(c)
		if term.IsTerminal(int(os.Stdin.Fd())) {
			go logging.ShortcutListeners()
		}
	}
}

// Run executes the root command and exits with the recorded exit code.
// Command errors such as unknown flags exit with ExitFatal.
func Run(rootCmd *cobra.Command) {
	SaveTerminalState()

	err := rootCmd.Execute()
	RestoreTerminalState()
	if err != nil {
		os.Exit(ExitFatal)
	}
	os.Exit(ExitCode())
}
