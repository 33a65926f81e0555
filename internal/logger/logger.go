// Package logger is wrangle's structured logging, built on log/slog.
//
// Everything is written to stderr so that tables printed on stdout stay
// clean. Console output is JSON by default, or a compact human format; a log
// file, when configured, always receives JSON.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the process-wide logger. Tests may swap it.
var Logger *slog.Logger

// console is the writer behind the console handler.
var console io.Writer = os.Stderr

func init() {
	Logger = slog.New(newConsoleHandler(console, slog.LevelInfo, FormatJSON))
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { Logger.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { Logger.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Logger.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Logger.Error(msg, args...) }

// OutputFormat selects the console encoding.
type OutputFormat int

const (
	// FormatJSON writes one JSON object per record.
	FormatJSON OutputFormat = iota
	// FormatHuman writes one short line per record, see HumanHandler.
	FormatHuman
)

func (f OutputFormat) String() string {
	if f == FormatHuman {
		return "human"
	}
	return "json"
}

// ParseFormat maps a --log-format value to an OutputFormat. "text" is
// accepted as a synonym of "human".
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format %q (want json or human)", s)
}

// SetLevel replaces Logger with a JSON console logger at level.
func SetLevel(level slog.Level) {
	SetLevelAndFormat(level, FormatJSON)
}

// SetLevelAndFormat replaces Logger with a console logger.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(newConsoleHandler(console, level, format))
}

// SetOutput points the console at w and rebuilds Logger. The previous writer
// is returned so that tests can put it back.
func SetOutput(w io.Writer, level slog.Level, format OutputFormat) io.Writer {
	prev := console
	console = w
	SetLevelAndFormat(level, format)
	return prev
}

func newConsoleHandler(w io.Writer, level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(w, &HumanHandlerOptions{Level: level, UseColors: isTerminal(w)})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
