package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// KindDrop is the stage type removing columns. A drop stage reports
// pipeline.KindSelect: it keeps every row and a subset of the columns.
const KindDrop = "drop"

// DropConfig represents the configuration for a drop stage.
type DropConfig struct {
	// Column is a single column to remove
	Column string `json:"column"`
	// Columns is a list of columns to remove
	Columns []string `json:"columns"`
}

// dropStage removes columns, keeping the others in table order.
type dropStage struct {
	columns []string
}

// ParseDropConfig parses a raw configuration map into DropConfig.
func ParseDropConfig(cfg map[string]interface{}) (DropConfig, error) {
	var c DropConfig
	var err error
	if c.Column, err = optionalString(cfg, "column"); err != nil {
		return c, err
	}
	if c.Columns, err = stringList(cfg, "columns"); err != nil {
		return c, err
	}
	if c.Column == "" && len(c.Columns) == 0 {
		return c, errors.New("'column' or 'columns' is required")
	}
	return c, nil
}

// NewDropFromConfig creates a drop stage. Duplicate names are removed while
// preserving order.
func NewDropFromConfig(c DropConfig) (pipeline.Stage, error) {
	columns := c.Columns
	if c.Column != "" {
		columns = append(slices.Clone(columns), c.Column)
	}

	seen := make(map[string]bool, len(columns))
	unique := make([]string, 0, len(columns))
	for _, name := range columns {
		if name != "" && !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	if len(unique) == 0 {
		return nil, errors.New("at least one non-empty column name is required")
	}

	logger.Debug("drop stage initialized", "columns", unique)
	return dropStage{columns: unique}, nil
}

func (s dropStage) Kind() string { return pipeline.KindSelect }

func (s dropStage) Name() string {
	return "drop " + strings.Join(s.columns, ", ")
}

// Apply fails with an UnknownColumnError when a dropped column is absent and
// with a SchemaError when no column would remain.
func (s dropStage) Apply(t *table.Table) (*table.Table, error) {
	for _, name := range s.columns {
		if _, err := t.Column(name); err != nil {
			return nil, err
		}
	}
	keep := make([]string, 0, len(t.Names()))
	for _, name := range t.Names() {
		if !slices.Contains(s.columns, name) {
			keep = append(keep, name)
		}
	}
	if len(keep) == 0 {
		return nil, &table.SchemaError{Message: fmt.Sprintf("dropping %s would leave no column", strings.Join(s.columns, ", "))}
	}
	return t.Select(keep...)
}
