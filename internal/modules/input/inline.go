package input

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/table"
)

// Inline is a source whose table is written directly in the pipeline
// definition. Useful for small lookup tables and for testing pipelines
// without fixture files.
type Inline struct {
	table *table.Table
}

// NewInlineFromConfig creates an inline source from {columns, rows}.
// Each row is a list with one cell per column. Strings, numbers and booleans
// keep their type; null is a missing value.
func NewInlineFromConfig(cfg *definition.ModuleConfig) (*Inline, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	rawColumns, ok := cfg.Config["columns"].([]interface{})
	if !ok || len(rawColumns) == 0 {
		return nil, fmt.Errorf("inline source requires a non-empty 'columns' list")
	}
	columns := make([]string, len(rawColumns))
	for i, c := range rawColumns {
		name, isString := c.(string)
		if !isString {
			return nil, fmt.Errorf("columns[%d] must be a string, got %T", i, c)
		}
		columns[i] = name
	}

	rawRows, ok := cfg.Config["rows"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("inline source requires a 'rows' list")
	}
	rows := make([][]table.Value, len(rawRows))
	for i, r := range rawRows {
		cells, isList := r.([]interface{})
		if !isList {
			return nil, fmt.Errorf("rows[%d] must be a list, got %T", i, r)
		}
		row := make([]table.Value, len(cells))
		for j, cell := range cells {
			v, err := table.FromAny(cell)
			if err != nil {
				return nil, fmt.Errorf("rows[%d][%d]: %w", i, j, err)
			}
			row[j] = v
		}
		rows[i] = row
	}

	t, err := table.FromRows(columns, rows)
	if err != nil {
		return nil, err
	}
	return &Inline{table: t}, nil
}

// Fetch returns the inline table.
func (m *Inline) Fetch(_ context.Context) (*table.Table, error) {
	logger.Debug("inline table loaded",
		slog.Int("row_count", m.table.Len()),
		slog.Int("column_count", len(m.table.Names())),
	)
	return m.table, nil
}

// Describe reports the table shape.
func (m *Inline) Describe() string {
	return fmt.Sprintf("inline (%d rows)", m.table.Len())
}

// Close releases resources (no-op for inline tables).
func (m *Inline) Close() error {
	return nil
}

var _ Module = (*Inline)(nil)
