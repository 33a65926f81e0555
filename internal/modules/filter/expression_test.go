package filter

import (
	"errors"
	"testing"

	"github.com/canectors/wrangle/pkg/table"
)

func TestCompileExpression(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		wantColumns []string
		wantErr     error
	}{
		{"arithmetic", "Weight / (Height / 100) ** 2", []string{"Weight", "Height"}, nil},
		{"repeated column", "Weight > 60 && Weight < 90", []string{"Weight"}, nil},
		{"builtin call", "len(Name) > 3", []string{"Name"}, nil},
		{"let binding", "let h = Height / 100; Weight / (h * h)", []string{"Height", "Weight"}, nil},
		{"empty", "   ", nil, ErrEmptyExpression},
		{"syntax error", "Weight >", nil, ErrInvalidExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := CompileExpression(tt.source)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CompileExpression() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CompileExpression() error = %v", err)
			}
			if got := e.Columns(); !equalStrings(got, tt.wantColumns) {
				t.Errorf("Columns() = %v, want %v", got, tt.wantColumns)
			}
			if e.String() != tt.source {
				t.Errorf("String() = %q", e.String())
			}
		})
	}
}

func TestExpressionEval(t *testing.T) {
	tbl := patients(t)
	e, err := CompileExpression("Weight / (Height / 100) ** 2")
	if err != nil {
		t.Fatal(err)
	}

	out, missing, err := e.Eval(tbl.Row(0))
	if err != nil || missing {
		t.Fatalf("Eval(row 0) = %v, %v, %v", out, missing, err)
	}
	if out.(float64) != 25 {
		t.Errorf("Eval(row 0) = %v, want 25", out)
	}

	// Carol has no height
	if _, missing, err = e.Eval(tbl.Row(2)); err != nil || !missing {
		t.Errorf("Eval(row 2) missing = %v, err = %v; want missing", missing, err)
	}
}

func TestExpressionEvalUnknownColumn(t *testing.T) {
	e, err := CompileExpression("Age > 30")
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = e.Eval(patients(t).Row(0))
	var unknown *table.UnknownColumnError
	if !errors.As(err, &unknown) || unknown.Column != "Age" {
		t.Fatalf("Eval() error = %v, want UnknownColumnError for Age", err)
	}
}

func TestExpressionEvalRuntimeError(t *testing.T) {
	e, err := CompileExpression("Name + 1")
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = e.Eval(patients(t).Row(1))
	var exprErr *ExpressionError
	if !errors.As(err, &exprErr) {
		t.Fatalf("Eval() error = %v, want ExpressionError", err)
	}
	if exprErr.Code != ErrCodeEvaluationFailed || exprErr.RowIndex != 1 {
		t.Errorf("ExpressionError = %+v", exprErr)
	}
}

func TestExpressionEvalOperandTypeError(t *testing.T) {
	tests := []struct {
		name   string
		source string
		column string
	}{
		{"ordering on unparsed column", "Weight > 60", "Weight"},
		{"arithmetic on unparsed column", `Sex == "Male" && Weight * 2 > 100`, "Weight"},
		{"string plus number", "Name + 1", "Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := CompileExpression(tt.source)
			if err != nil {
				t.Fatal(err)
			}

			_, _, err = e.Eval(rawPatients(t).Row(1))
			var typeErr *table.TypeError
			if !errors.As(err, &typeErr) || typeErr.Column != tt.column {
				t.Fatalf("Eval() error = %v, want TypeError on %s", err, tt.column)
			}
			if typeErr.Got != table.KindString {
				t.Errorf("Got = %v, want string", typeErr.Got)
			}
		})
	}
}
