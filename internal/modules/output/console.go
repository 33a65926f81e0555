package output

import (
	"context"
	"io"
	"os"

	"github.com/canectors/wrangle/internal/textio"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/table"
)

// Console writes the table as delimited text to standard output.
// Logs go to stderr, so the output can be piped.
type Console struct {
	w         io.Writer
	delimiter rune
	rows      int
}

// NewConsoleFromConfig creates a console output from {delimiter, rows}.
// The delimiter defaults to tab; rows limits the output, 0 meaning all rows.
func NewConsoleFromConfig(cfg *definition.ModuleConfig) (*Console, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	delimiter, err := delimiterField(cfg.Config, "", textio.Tab)
	if err != nil {
		return nil, err
	}
	rows, err := intField(cfg.Config, "rows")
	if err != nil {
		return nil, err
	}
	return &Console{w: os.Stdout, delimiter: delimiter, rows: rows}, nil
}

// NewConsole creates a console output writing to w.
func NewConsole(w io.Writer, delimiter rune, rows int) *Console {
	return &Console{w: w, delimiter: delimiter, rows: rows}
}

// Send writes t, or its first rows when a limit is set.
func (m *Console) Send(ctx context.Context, t *table.Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out := t
	if m.rows > 0 {
		out = t.Head(m.rows)
	}
	if err := textio.Write(m.w, out, m.delimiter); err != nil {
		return 0, err
	}
	return out.Len(), nil
}

// Preview renders the first rows.
func (m *Console) Preview(t *table.Table, opts PreviewOptions) (*Preview, error) {
	body, err := textPreview(t, m.delimiter, opts)
	if err != nil {
		return nil, err
	}
	return &Preview{Destination: m.Describe(), RowCount: t.Len(), Body: body}, nil
}

// Describe returns "stdout".
func (m *Console) Describe() string { return "stdout" }

// Close releases resources (no-op for console output).
func (m *Console) Close() error { return nil }

var _ PreviewableModule = (*Console)(nil)
