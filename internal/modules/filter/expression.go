package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/canectors/wrangle/pkg/table"
)

// Error codes for expression stages
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
	ErrCodeNotBoolean        = "NOT_BOOLEAN"
)

var (
	// ErrEmptyExpression is returned when an expression is empty or whitespace-only.
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid.
	ErrInvalidExpression = errors.New("invalid expression syntax")
)

// ExpressionError carries structured context for expression evaluation failures.
type ExpressionError struct {
	Code       string
	Message    string
	Expression string
	// RowIndex is the failing row, -1 at compile time.
	RowIndex int
	Err      error
}

func (e *ExpressionError) Error() string {
	return e.Message
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// Expression is a compiled expr-lang expression over the columns of a row.
// Columns are referenced by name; a missing cell in any referenced column
// short-circuits evaluation.
type Expression struct {
	source  string
	program *vm.Program
	columns []string
	// operands are the columns used directly by arithmetic or ordering
	// operators
	operands []string
}

// CompileExpression parses and compiles source once for reuse on every row.
func CompileExpression(source string) (*Expression, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyExpression
	}

	tree, err := parser.Parse(source)
	if err != nil {
		return nil, &ExpressionError{
			Code:       ErrCodeInvalidExpression,
			Message:    fmt.Sprintf("%v: %v", ErrInvalidExpression, err),
			Expression: source,
			RowIndex:   -1,
			Err:        ErrInvalidExpression,
		}
	}

	program, err := expr.Compile(source)
	if err != nil {
		return nil, &ExpressionError{
			Code:       ErrCodeInvalidExpression,
			Message:    fmt.Sprintf("%v: %v", ErrInvalidExpression, err),
			Expression: source,
			RowIndex:   -1,
			Err:        ErrInvalidExpression,
		}
	}

	columns, operands := referencedColumns(tree.Node)
	return &Expression{
		source:   source,
		program:  program,
		columns:  columns,
		operands: operands,
	}, nil
}

// String returns the expression source.
func (e *Expression) String() string { return e.source }

// Columns returns the column names the expression references, in order of
// first appearance.
func (e *Expression) Columns() []string { return slices.Clone(e.columns) }

// Eval runs the expression on r. missing is true, and out nil, when any
// referenced column is missing in r. Referencing a column the table lacks is
// an UnknownColumnError.
func (e *Expression) Eval(r table.Row) (out any, missing bool, err error) {
	for _, name := range e.columns {
		v, getErr := r.Get(name)
		if getErr != nil {
			return nil, false, getErr
		}
		if v.IsMissing() {
			return nil, true, nil
		}
	}

	out, err = expr.Run(e.program, r.Env())
	if err != nil {
		cause := err
		if typeErr := e.operandTypeError(r, err); typeErr != nil {
			cause = typeErr
		}
		return nil, false, &ExpressionError{
			Code:       ErrCodeEvaluationFailed,
			Message:    fmt.Sprintf("expression %q failed at row %d: %v", e.source, r.Index(), err),
			Expression: e.source,
			RowIndex:   r.Index(),
			Err:        cause,
		}
	}
	return out, false, nil
}

// operandTypeError blames an "invalid operation" runtime failure on the first
// non-numeric column used as an arithmetic or ordering operand, typically a
// column that was never parsed.
func (e *Expression) operandTypeError(r table.Row, err error) *table.TypeError {
	if !strings.Contains(err.Error(), "invalid operation") {
		return nil
	}
	for _, name := range e.operands {
		kind, kindErr := r.Kind(name)
		if kindErr == nil && kind != table.KindNumeric {
			return &table.TypeError{Column: name, Op: "expression " + e.source, Got: kind, Want: "a numeric column"}
		}
	}
	return nil
}

// identifierCollector gathers free identifiers, skipping let-bound names.
type identifierCollector struct {
	names    []string
	operands []string
	declared map[string]bool
}

var numericOperators = map[string]bool{
	"<": true, ">": true, "<=": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true, "^": true,
}

func (c *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = true
	case *ast.IdentifierNode:
		if !slices.Contains(c.names, n.Value) {
			c.names = append(c.names, n.Value)
		}
	case *ast.BinaryNode:
		if numericOperators[n.Operator] {
			c.operand(n.Left)
			c.operand(n.Right)
		}
	case *ast.UnaryNode:
		if n.Operator == "-" || n.Operator == "+" {
			c.operand(n.Node)
		}
	}
}

func (c *identifierCollector) operand(node ast.Node) {
	if id, ok := node.(*ast.IdentifierNode); ok && !slices.Contains(c.operands, id.Value) {
		c.operands = append(c.operands, id.Value)
	}
}

func referencedColumns(root ast.Node) (columns, operands []string) {
	c := &identifierCollector{declared: map[string]bool{}}
	ast.Walk(&root, c)
	free := func(name string) bool { return c.declared[name] }
	return slices.DeleteFunc(c.names, free), slices.DeleteFunc(c.operands, free)
}
