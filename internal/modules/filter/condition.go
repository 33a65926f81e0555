package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// ConditionConfig represents the configuration for a filter stage.
// Exactly one of Expression or Where must be set.
type ConditionConfig struct {
	// Expression is an expr-lang boolean expression over column names
	Expression string `json:"expression,omitempty"`
	// Where is a structured predicate (column/op/value, all, any, not)
	Where map[string]interface{} `json:"where,omitempty"`
}

// ParseConditionConfig parses a filter stage configuration from raw config.
func ParseConditionConfig(cfg map[string]interface{}) (ConditionConfig, error) {
	config := ConditionConfig{}

	expression, err := optionalString(cfg, "expression")
	if err != nil {
		return config, err
	}
	config.Expression = expression

	if raw, ok := cfg["where"]; ok && raw != nil {
		where, isMap := raw.(map[string]interface{})
		if !isMap {
			return config, fmt.Errorf("field 'where' must be an object, got %T", raw)
		}
		config.Where = where
	}

	switch {
	case config.Expression != "" && config.Where != nil:
		return config, errors.New("cannot specify both 'expression' and 'where' - use only one")
	case config.Expression == "" && config.Where == nil:
		return config, errors.New("either 'expression' or 'where' is required in filter config")
	}
	return config, nil
}

// NewConditionFromConfig creates a filter stage keeping the rows for which
// the condition holds.
func NewConditionFromConfig(config ConditionConfig) (pipeline.Stage, error) {
	var (
		pred table.Predicate
		err  error
	)
	if config.Where != nil {
		pred, err = ParseWhere(config.Where)
	} else {
		pred, err = NewExpressionPredicate(config.Expression)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("filter stage initialized",
		slog.String("predicate", pred.String()),
		slog.Bool("structured", config.Where != nil),
	)
	return pipeline.Filter(pred), nil
}

// expressionPredicate adapts a compiled Expression to table.Predicate.
type expressionPredicate struct {
	expr *Expression
}

// NewExpressionPredicate compiles source into a predicate. A row with a
// missing cell in any referenced column does not match. A non-boolean result
// is an ExpressionError.
func NewExpressionPredicate(source string) (table.Predicate, error) {
	compiled, err := CompileExpression(source)
	if err != nil {
		return nil, err
	}
	return expressionPredicate{expr: compiled}, nil
}

func (p expressionPredicate) String() string { return p.expr.String() }

func (p expressionPredicate) Evaluate(r table.Row) (bool, error) {
	out, missing, err := p.expr.Eval(r)
	if err != nil || missing {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, &ExpressionError{
			Code:       ErrCodeNotBoolean,
			Message:    fmt.Sprintf("filter expression %q returned %T at row %d, want bool", p.expr.String(), out, r.Index()),
			Expression: p.expr.String(),
			RowIndex:   r.Index(),
		}
	}
	return b, nil
}
