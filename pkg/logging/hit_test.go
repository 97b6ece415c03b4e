package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func captureHits(t *testing.T) *bytes.Buffer {
	t.Helper()
	originalLogger := log.Logger
	t.Cleanup(func() {
		log.Logger = originalLogger
		SetGlobalHitWriter(nil)
	})

	var buf bytes.Buffer
	writer := NewHitLevelWriter(&buf)
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	SetGlobalHitWriter(writer)
	return &buf
}

func TestHit(t *testing.T) {
	buf := captureHits(t)

	Hit().
		Str("ruleId", "aws-access-key-id").
		Str("value", "AKIA...").
		Int("line", 5).
		Float64("entropy", 3.7).
		Strs("tags", []string{"aws", "key"}).
		Msg("SECRET")

	out := buf.String()
	require.True(t, gjson.Valid(out), out)
	assert.Equal(t, "hit", gjson.Get(out, "level").String())
	assert.Equal(t, "aws-access-key-id", gjson.Get(out, "ruleId").String())
	assert.Equal(t, int64(5), gjson.Get(out, "line").Int())
	assert.InDelta(t, 3.7, gjson.Get(out, "entropy").Float(), 1e-9)
	assert.Equal(t, "key", gjson.Get(out, "tags.1").String())
	assert.Equal(t, "SECRET", gjson.Get(out, "message").String())
	assert.False(t, gjson.Get(out, hitMarker).Exists())
}

func TestHitFollowsHitLevel(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)
	buf := captureHits(t)

	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	Hit().Str("ruleId", "x").Msg("SECRET")
	log.Error().Msg("plain error")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "hits are filtered above HitLevel")
	assert.Equal(t, "error", gjson.GetBytes(lines[0], "level").String())

	buf.Reset()
	zerolog.SetGlobalLevel(HitLevel)
	Hit().Str("ruleId", "x").Msg("SECRET")
	assert.Equal(t, "hit", gjson.Get(buf.String(), "level").String())
}

func TestHitOnlyMarksNextLine(t *testing.T) {
	buf := captureHits(t)

	Hit().Str("ruleId", "x").Msg("SECRET")
	log.Warn().Msg("plain warning")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "hit", gjson.GetBytes(lines[0], "level").String())
	assert.Equal(t, "warn", gjson.GetBytes(lines[1], "level").String())
}

func TestHitLevelWriterNonJSONPassthrough(t *testing.T) {
	var buf bytes.Buffer
	writer := NewHitLevelWriter(&buf)

	writer.markNextAsHit()
	plain := []byte("plain text log\n")
	n, err := writer.Write(plain)
	require.NoError(t, err)
	assert.Equal(t, len(plain), n)
	assert.Equal(t, string(plain), buf.String())
}

func TestHitLevelWriterSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	writer := NewHitLevelWriter(&first)
	writer.SetOutput(&second)

	_, err := writer.Write([]byte(`{"level":"info"}` + "\n"))
	require.NoError(t, err)
	assert.Empty(t, first.String())
	assert.NotEmpty(t, second.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"hit", HitLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"invalid", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, level)
		})
	}
}
