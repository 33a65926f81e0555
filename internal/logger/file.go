package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

var logFile *os.File

// A log file at or above this size is renamed aside before being reopened.
const maxLogFileSize = 10 << 20

// SetLogFile sends records both to the console, in consoleFormat, and to the
// file at path as JSON. The file is appended to.
func SetLogFile(path string, level slog.Level, consoleFormat OutputFormat) error {
	CloseLogFile()

	if err := rotate(path, time.Now()); err != nil {
		Warn("log rotation failed", slog.String(KeyError, err.Error()))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	Logger = slog.New(fanout{
		newConsoleHandler(console, level, consoleFormat),
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}),
	})
	Debug("log file opened", slog.String("path", path), slog.String("console_format", consoleFormat.String()))
	return nil
}

// CloseLogFile flushes and closes the log file opened by SetLogFile, if any.
func CloseLogFile() {
	if logFile == nil {
		return
	}
	if err := errors.Join(logFile.Sync(), logFile.Close()); err != nil {
		Warn("failed to close log file", slog.String(KeyError, err.Error()))
	}
	logFile = nil
}

func rotate(path string, now time.Time) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking log file size: %w", err)
	}
	if info.Size() < maxLogFileSize {
		return nil
	}
	if err := os.Rename(path, path+"."+now.Format("20060102-150405")); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}

// fanout hands each record to every handler enabled for its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
