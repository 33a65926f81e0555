package output

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

// TextFile writes the table as delimited text, replacing any existing file.
type TextFile struct {
	path      string
	delimiter rune
}

// NewTextFileFromConfig creates a text file output from {path, delimiter}.
func NewTextFileFromConfig(cfg *definition.ModuleConfig) (*TextFile, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	path, err := stringField(cfg.Config, "path")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrMissingPath
	}
	delimiter, err := delimiterField(cfg.Config, path, textio.Comma)
	if err != nil {
		return nil, err
	}
	return &TextFile{path: path, delimiter: delimiter}, nil
}

// Send writes t to the configured path.
func (m *TextFile) Send(ctx context.Context, t *table.Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	f, err := createFile(m.path)
	if err != nil {
		return 0, err
	}
	if err := textio.Write(f, t, m.delimiter); err != nil {
		f.Close()
		return 0, fmt.Errorf("writing %s: %w", m.path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", m.path, err)
	}

	logger.Debug("text table written",
		slog.String("path", m.path),
		slog.Int("row_count", t.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return t.Len(), nil
}

// Preview renders the first rows without touching the file.
func (m *TextFile) Preview(t *table.Table, opts PreviewOptions) (*Preview, error) {
	body, err := textPreview(t, m.delimiter, opts)
	if err != nil {
		return nil, err
	}
	return &Preview{Destination: m.path, RowCount: t.Len(), Body: body}, nil
}

// Describe returns the file path.
func (m *TextFile) Describe() string { return m.path }

// Close releases resources (no-op, the file is closed after writing).
func (m *TextFile) Close() error { return nil }

var _ PreviewableModule = (*TextFile)(nil)
