package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Source names where a finding was detected.
type Source string

const (
	// SourceFile is a finding in the working tree.
	SourceFile Source = "file"
	// SourceHistory is a finding in a line added by a commit.
	SourceHistory Source = "history"
)

// HitLevel is the level hits are logged and filtered at. They are renamed to
// "hit" on output.
const HitLevel zerolog.Level = zerolog.WarnLevel

const hitMarker = "_hit"

var hitMarkerField = []byte(`"` + hitMarker + `":true`)

// HitLevelWriter rewrites the level of the next marked JSON log line to "hit".
type HitLevelWriter struct {
	out       io.Writer
	mu        sync.Mutex
	nextIsHit bool
}

// NewHitLevelWriter wraps out.
func NewHitLevelWriter(out io.Writer) *HitLevelWriter {
	return &HitLevelWriter{out: out}
}

func (w *HitLevelWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	isHit := w.nextIsHit
	w.nextIsHit = false
	out := w.out
	w.mu.Unlock()

	if (isHit || bytes.Contains(p, hitMarkerField)) && len(p) > 0 {
		if rewritten, ok := rewriteHit(p); ok {
			if _, err := out.Write(rewritten); err != nil {
				return 0, err
			}
			return len(p), nil
		}
	}
	return out.Write(p)
}

func rewriteHit(p []byte) ([]byte, bool) {
	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		return nil, false
	}
	if entry["level"] == "warn" || entry["level"] == "error" {
		entry["level"] = "hit"
	}
	delete(entry, hitMarker)

	out, err := json.Marshal(entry)
	if err != nil {
		return nil, false
	}
	return append(out, '\n'), true
}

func (w *HitLevelWriter) markNextAsHit() {
	w.mu.Lock()
	w.nextIsHit = true
	w.mu.Unlock()
}

// SetOutput swaps the underlying writer.
func (w *HitLevelWriter) SetOutput(out io.Writer) {
	w.mu.Lock()
	w.out = out
	w.mu.Unlock()
}

// HitEvent is a log event for a finding.
type HitEvent struct {
	event  *zerolog.Event
	writer *HitLevelWriter
}

func (h *HitEvent) Str(key, val string) *HitEvent {
	h.event.Str(key, val)
	return h
}

func (h *HitEvent) Strs(key string, vals []string) *HitEvent {
	h.event.Strs(key, vals)
	return h
}

func (h *HitEvent) Int(key string, val int) *HitEvent {
	h.event.Int(key, val)
	return h
}

func (h *HitEvent) Float64(key string, val float64) *HitEvent {
	h.event.Float64(key, val)
	return h
}

// Msg sends the event.
func (h *HitEvent) Msg(msg string) {
	if h.writer != nil && h.event.Enabled() {
		h.writer.markNextAsHit()
	}
	h.event.Bool(hitMarker, true).Msg(msg)
}

var (
	hitWriterMu     sync.Mutex
	globalHitWriter *HitLevelWriter
)

// SetGlobalHitWriter installs the writer that Hit marks events on. The logger
// setup in the CLI calls it with the writer wrapping the log output.
func SetGlobalHitWriter(writer *HitLevelWriter) {
	hitWriterMu.Lock()
	globalHitWriter = writer
	hitWriterMu.Unlock()
}

func hitWriter() *HitLevelWriter {
	hitWriterMu.Lock()
	defer hitWriterMu.Unlock()
	if globalHitWriter == nil {
		globalHitWriter = NewHitLevelWriter(os.Stderr)
		log.Logger = zerolog.New(globalHitWriter).With().Timestamp().Logger()
	}
	return globalHitWriter
}

// Hit creates a log event for a finding. Hits are emitted unless the global
// level is above HitLevel.
func Hit() *HitEvent {
	return &HitEvent{
		event:  log.WithLevel(HitLevel),
		writer: hitWriter(),
	}
}

// ParseLevel extends zerolog.ParseLevel with "hit".
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "hit" {
		return HitLevel, nil
	}
	return zerolog.ParseLevel(levelStr)
}
