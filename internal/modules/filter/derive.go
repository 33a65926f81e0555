package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// DeriveConfig represents the configuration for a derive stage.
// Exactly one of Expression or Script must be set.
type DeriveConfig struct {
	// Target is the column to add or replace
	Target string `json:"target"`
	// Expression is an expr-lang expression over column names
	Expression string `json:"expression,omitempty"`
	// Script is a JavaScript derive(row) function
	Script ScriptConfig `json:"script,omitempty"`
	// Description overrides the stage name shown in logs
	Description string `json:"description,omitempty"`
}

// ParseDeriveConfig parses a derive stage configuration from raw config.
func ParseDeriveConfig(cfg map[string]interface{}) (DeriveConfig, error) {
	config := DeriveConfig{}

	target, err := requireString(cfg, "target")
	if err != nil {
		return config, err
	}
	config.Target = target

	if config.Expression, err = optionalString(cfg, "expression"); err != nil {
		return config, err
	}
	if config.Description, err = optionalString(cfg, "description"); err != nil {
		return config, err
	}
	if config.Script, err = ParseScriptConfig(cfg); err != nil {
		return config, err
	}

	switch {
	case config.Expression != "" && config.Script.IsSet():
		return config, errors.New("cannot specify both 'expression' and a script - use only one")
	case config.Expression == "" && !config.Script.IsSet():
		return config, errors.New("one of 'expression', 'script' or 'scriptFile' is required in derive config")
	}
	return config, nil
}

// NewDeriveFromConfig creates a derive stage computing Target on every row.
//
// An expression yields missing when any column it references is missing.
// A script receives null for missing cells and decides itself; returning
// null or undefined stores a missing value.
func NewDeriveFromConfig(config DeriveConfig) (pipeline.Stage, error) {
	if config.Target == "" {
		return nil, errors.New("required field 'target' is missing")
	}

	var (
		fn   pipeline.RowFunc
		desc = config.Description
	)
	if config.Expression != "" {
		compiled, err := CompileExpression(config.Expression)
		if err != nil {
			return nil, err
		}
		fn = expressionRowFunc(compiled)
		if desc == "" {
			desc = compiled.String()
		}
	} else {
		script, err := NewScriptFunc(config.Script, "derive "+config.Target)
		if err != nil {
			return nil, err
		}
		fn = script.Call
		if desc == "" {
			desc = "script"
		}
	}

	logger.Debug("derive stage initialized",
		slog.String("target", config.Target),
		slog.String("description", desc),
		slog.Bool("script", config.Expression == ""),
	)
	return pipeline.Derive(config.Target, desc, fn), nil
}

func expressionRowFunc(e *Expression) pipeline.RowFunc {
	return func(r table.Row) (table.Value, error) {
		out, missing, err := e.Eval(r)
		if err != nil {
			return table.Value{}, err
		}
		if missing {
			return table.Missing(table.KindNumeric), nil
		}
		v, err := table.FromAny(out)
		if err != nil {
			return table.Value{}, &ExpressionError{
				Code:       ErrCodeEvaluationFailed,
				Message:    fmt.Sprintf("expression %q returned %T at row %d: %v", e.String(), out, r.Index(), err),
				Expression: e.String(),
				RowIndex:   r.Index(),
				Err:        err,
			}
		}
		return v, nil
	}
}
