package filter

import (
	"errors"
	"fmt"

	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// NewRenameFromConfig creates a rename stage from {from, to}.
func NewRenameFromConfig(cfg map[string]interface{}) (pipeline.Stage, error) {
	from, err := requireString(cfg, "from")
	if err != nil {
		return nil, err
	}
	to, err := requireString(cfg, "to")
	if err != nil {
		return nil, err
	}
	return pipeline.Rename(from, to), nil
}

// NewSelectFromConfig creates a select stage from {columns: [...]}.
func NewSelectFromConfig(cfg map[string]interface{}) (pipeline.Stage, error) {
	columns, err := stringList(cfg, "columns")
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.New("select requires at least one column in 'columns'")
	}
	return pipeline.Select(columns...), nil
}

// ParseSortKeys reads {keys: [...]}. A key is either a column name
// (ascending) or an object {column, direction}.
func ParseSortKeys(cfg map[string]interface{}) ([]table.SortKey, error) {
	raw, ok := cfg["keys"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, errors.New("sort requires at least one key in 'keys'")
	}

	keys := make([]table.SortKey, 0, len(raw))
	for i, item := range raw {
		switch k := item.(type) {
		case string:
			if k == "" {
				return nil, fmt.Errorf("keys[%d]: column cannot be empty", i)
			}
			keys = append(keys, table.Asc(k))
		case map[string]interface{}:
			column, err := requireString(k, "column")
			if err != nil {
				return nil, fmt.Errorf("keys[%d]: %w", i, err)
			}
			direction, err := optionalString(k, "direction")
			if err != nil {
				return nil, fmt.Errorf("keys[%d]: %w", i, err)
			}
			dir, err := table.ParseDirection(direction)
			if err != nil {
				return nil, fmt.Errorf("keys[%d]: %w", i, err)
			}
			keys = append(keys, table.SortKey{Column: column, Direction: dir})
		default:
			return nil, fmt.Errorf("keys[%d]: expected a column name or {column, direction}, got %T", i, item)
		}
	}
	return keys, nil
}

// NewSortFromConfig creates a sort stage.
func NewSortFromConfig(cfg map[string]interface{}) (pipeline.Stage, error) {
	keys, err := ParseSortKeys(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.Sort(keys...), nil
}
