package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/canectors/wrangle/internal/arrowconv"
	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/table"
)

// Columnar file formats.
const (
	FormatArrow   = "arrow"
	FormatParquet = "parquet"
)

// Columnar writes the table as an Arrow IPC or Parquet file.
type Columnar struct {
	path   string
	format string
	write  func(io.Writer, *table.Table) error
}

// NewArrowFromConfig creates an Arrow IPC file output from {path}.
func NewArrowFromConfig(cfg *definition.ModuleConfig) (*Columnar, error) {
	return newColumnar(cfg, FormatArrow, arrowconv.WriteIPC)
}

// NewParquetFromConfig creates a Parquet file output from {path}.
func NewParquetFromConfig(cfg *definition.ModuleConfig) (*Columnar, error) {
	return newColumnar(cfg, FormatParquet, arrowconv.WriteParquet)
}

func newColumnar(cfg *definition.ModuleConfig, format string, write func(io.Writer, *table.Table) error) (*Columnar, error) {
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
	return &Columnar{path: path, format: format, write: write}, nil
}

// Send writes t to the configured path.
func (m *Columnar) Send(ctx context.Context, t *table.Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	f, err := createFile(m.path)
	if err != nil {
		return 0, err
	}
	if err := m.write(f, t); err != nil {
		f.Close()
		return 0, fmt.Errorf("writing %s file %s: %w", m.format, m.path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", m.path, err)
	}

	logger.Debug("columnar table written",
		slog.String("path", m.path),
		slog.String("format", m.format),
		slog.Int("row_count", t.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return t.Len(), nil
}

// Preview shows the Arrow schema that would be written.
func (m *Columnar) Preview(t *table.Table, _ PreviewOptions) (*Preview, error) {
	schema, err := arrowconv.Schema(t)
	if err != nil {
		return nil, err
	}
	return &Preview{Destination: m.Describe(), RowCount: t.Len(), Body: schema.String()}, nil
}

// Describe returns the format and path.
func (m *Columnar) Describe() string { return m.format + ":" + m.path }

// Close releases resources (no-op, the file is closed after writing).
func (m *Columnar) Close() error { return nil }

var _ PreviewableModule = (*Columnar)(nil)
