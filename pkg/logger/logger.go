// Package logger provides a logging utility based on log/slog
//
// DEBUG logging can be enabled by setting the CODERUNNER_DEBUG environment variable:
//   export CODERUNNER_DEBUG=1
//
// Logs always go to stderr. Stdout belongs to the programs being run and to
// the MCP stdio transport.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger is the global logger instance
	Logger *slog.Logger

	level = new(slog.LevelVar)
)

func init() {
	if debugEnabled(os.Getenv("CODERUNNER_DEBUG")) {
		level.Set(slog.LevelDebug)
	}
	Setup(os.Stderr)
}

// Setup points the global logger at w, keeping the current level.
func Setup(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	Logger = slog.New(handler)

	// Replace the default slog logger too
	slog.SetDefault(Logger)
}

// SetLevel changes the minimum level logged at runtime.
func SetLevel(l slog.Level) {
	level.Set(l)
}

func debugEnabled(v string) bool {
	return v != "" && strings.ToLower(v) != "false" && v != "0"
}

// Debug logs a debug message if debug logging is enabled
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
