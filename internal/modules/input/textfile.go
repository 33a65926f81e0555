package input

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/internal/textio"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/table"
)

// TextFile loads a delimited text table from disk. Every column is loaded as
// strings; typing columns is left to parse stages.
type TextFile struct {
	path      string
	delimiter rune
}

// NewTextFileFromConfig creates a text file source from {path, delimiter}.
// The delimiter is optional and inferred from the file extension when absent.
func NewTextFileFromConfig(cfg *definition.ModuleConfig) (*TextFile, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	path, _ := cfg.Config["path"].(string)
	if path == "" {
		return nil, ErrMissingPath
	}

	rawDelim, ok := cfg.Config["delimiter"]
	if !ok || rawDelim == nil {
		rawDelim = ""
	}
	delimText, ok := rawDelim.(string)
	if !ok {
		return nil, fmt.Errorf("field 'delimiter' must be a string, got %T", rawDelim)
	}
	delimiter, err := textio.ParseDelimiter(delimText)
	if err != nil {
		return nil, err
	}
	if delimiter == 0 {
		delimiter = textio.DelimiterFor(path)
	}

	return &TextFile{path: path, delimiter: delimiter}, nil
}

// Fetch reads the file. The load is not interruptible once started; ctx is
// checked before opening the file.
func (m *TextFile) Fetch(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	t, err := textio.Load(m.path, m.delimiter)
	if err != nil {
		return nil, err
	}

	logger.Debug("text table loaded",
		slog.String("path", m.path),
		slog.String("delimiter", string(m.delimiter)),
		slog.Int("row_count", t.Len()),
		slog.Int("column_count", len(t.Names())),
		slog.Duration("duration", time.Since(start)),
	)
	return t, nil
}

// Describe returns the file path.
func (m *TextFile) Describe() string { return m.path }

// Close releases resources (no-op, the file is closed after loading).
func (m *TextFile) Close() error { return nil }

var _ Module = (*TextFile)(nil)
