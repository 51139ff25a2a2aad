package logger

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugEnabled(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"FALSE": false,
		"1":     true,
		"true":  true,
		"yes":   true,
	}
	for in, want := range cases {
		assert.Equal(t, want, debugEnabled(in), "input %q", in)
	}
}

func TestSetLevelControlsOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf)
	defer Setup(os.Stderr)
	defer SetLevel(slog.LevelInfo)

	SetLevel(slog.LevelInfo)
	Debug("hidden message")
	assert.NotContains(t, buf.String(), "hidden message")

	SetLevel(slog.LevelDebug)
	Debug("visible message", "key", "value")
	assert.Contains(t, buf.String(), "visible message")
	assert.Contains(t, buf.String(), "key=value")

	Info("info message")
	assert.Contains(t, buf.String(), "level=INFO")

	SetLevel(slog.LevelWarn)
	Info("quiet info")
	Warn("loud warning")
	assert.NotContains(t, buf.String(), "quiet info")
	assert.Contains(t, buf.String(), "loud warning")
}
