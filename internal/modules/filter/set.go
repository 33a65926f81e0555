package filter

import (
	"errors"
	"fmt"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// KindSet is the stage type storing a constant in a column. A set stage is a
// derive whose value does not depend on the row.
const KindSet = "set"

// SetConfig represents the configuration for a set stage.
type SetConfig struct {
	// Target is the column to create or replace
	Target string `json:"target"`
	// Value is the literal stored in every row; null stores a missing string
	Value interface{} `json:"value"`
}

// ParseSetConfig parses a raw configuration map into SetConfig.
func ParseSetConfig(cfg map[string]interface{}) (SetConfig, error) {
	var c SetConfig
	target, err := requireString(cfg, "target")
	if err != nil {
		return c, err
	}
	c.Target = target

	if _, hasValue := cfg["value"]; !hasValue {
		return c, errors.New("'value' is required")
	}
	c.Value = cfg["value"]
	return c, nil
}

// NewSetFromConfig creates a set stage. The value must be a string, a number
// or a boolean.
func NewSetFromConfig(c SetConfig) (pipeline.Stage, error) {
	if c.Target == "" {
		return nil, errors.New("target column is required")
	}
	v, err := table.FromAny(c.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid 'value': %w", err)
	}

	logger.Debug("set stage initialized", "target", c.Target, "value", v.String())
	return pipeline.Derive(c.Target, describeConstant(v), func(table.Row) (table.Value, error) {
		return v, nil
	}), nil
}

// describeConstant renders v the way it would be written in an expression.
func describeConstant(v table.Value) string {
	if v.IsMissing() {
		return "null"
	}
	if v.Kind() == table.KindString {
		return fmt.Sprintf("%q", v.Text())
	}
	return v.Text()
}
