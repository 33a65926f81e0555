package filter

import (
	"log/slog"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/internal/textio"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// DefaultInspectRows is the number of rows an inspect stage logs by default.
const DefaultInspectRows = 5

// inspectStage logs the shape and first rows of the table it sees and
// passes the table through unchanged.
type inspectStage struct {
	label string
	rows  int
}

// NewInspectFromConfig creates an inspect stage from {label, rows}.
func NewInspectFromConfig(cfg map[string]interface{}) (pipeline.Stage, error) {
	label, err := optionalString(cfg, "label")
	if err != nil {
		return nil, err
	}
	rows, err := optionalInt(cfg, "rows", DefaultInspectRows)
	if err != nil {
		return nil, err
	}
	return inspectStage{label: label, rows: rows}, nil
}

func (s inspectStage) Kind() string { return pipeline.KindInspect }

func (s inspectStage) Name() string {
	if s.label == "" {
		return "inspect"
	}
	return "inspect " + s.label
}

func (s inspectStage) Apply(t *table.Table) (*table.Table, error) {
	attrs := []any{
		slog.String("label", s.label),
		slog.Int("row_count", t.Len()),
		slog.Any("columns", t.Names()),
	}
	// cells holding a tab have no text form; the snapshot goes out without them
	if preview, err := textio.ToText(t.Head(s.rows), textio.Tab); err != nil {
		attrs = append(attrs, slog.String("preview_error", err.Error()))
	} else {
		attrs = append(attrs, slog.String("preview", preview))
	}
	logger.Info("table snapshot", attrs...)
	return t, nil
}
