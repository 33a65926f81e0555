package table

import (
	"errors"
	"testing"
)

func TestPredicates(t *testing.T) {
	tbl := patients(t)

	tests := []struct {
		name string
		pred Predicate
		want []string
	}{
		{"eq string", Eq("Sex", String("Female")), []string{"Alice", "Carol"}},
		{"ne skips missing", Ne("Weight", Number(70)), []string{"Bob"}},
		{"gt numeric", Gt("Weight", Number(75)), []string{"Bob"}},
		{"le numeric", Le("Weight", Number(70)), []string{"Alice", "Dave"}},
		{"string literal coerced to numeric", Eq("Weight", String("90")), []string{"Bob"}},
		{"in", In("Name", String("Bob"), String("Carol"), String("Zed")), []string{"Bob", "Carol"}},
		{"contains", Contains("Name", "a"), []string{"Carol", "Dave"}},
		{"prefix", HasPrefix("Name", "A"), []string{"Alice"}},
		{"missing", IsMissing("Weight"), []string{"Carol"}},
		{"and", And(Eq("Sex", String("Male")), Lt("Weight", Number(80))), []string{"Dave"}},
		{"or", Or(Eq("Name", String("Alice")), Gt("Weight", Number(80))), []string{"Alice", "Bob"}},
		{"not", Not(Eq("Sex", String("Male"))), []string{"Alice", "Carol"}},
		{"empty and", And(), []string{"Alice", "Bob", "Carol", "Dave"}},
		{"empty or", Or(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tbl.Filter(tt.pred)
			if err != nil {
				t.Fatalf("Filter(%s) error = %v", tt.pred, err)
			}
			if got := names(t, out); !equalStrings(got, tt.want) {
				t.Errorf("Filter(%s) = %v, want %v", tt.pred, got, tt.want)
			}
		})
	}
}

func TestPredicateTypeErrors(t *testing.T) {
	tbl := patients(t)

	tests := []struct {
		name string
		pred Predicate
	}{
		{"prefix on numeric", HasPrefix("Weight", "7")},
		{"contains on numeric", Contains("Weight", "7")},
		{"unparseable literal", Eq("Weight", String("heavy"))},
		{"bool literal on numeric", Eq("Weight", Bool(true))},
		{"numeric literal on string", Gt("Name", Number(150))},
		{"bool literal on string", Eq("Name", Bool(true))},
		{"numeric literal in membership on string", In("Name", Number(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tbl.Filter(tt.pred)
			var typeErr *TypeError
			if !errors.As(err, &typeErr) {
				t.Fatalf("expected TypeError, got %v", err)
			}
		})
	}
}

func TestPredicateShortCircuit(t *testing.T) {
	tbl := patients(t)
	failing := PredicateFunc{Desc: "boom", Fn: func(Row) (bool, error) {
		return false, errors.New("boom")
	}}

	if _, err := tbl.Filter(And(Eq("Name", String("nobody")), failing)); err != nil {
		t.Errorf("And should stop at the first false operand, got %v", err)
	}
	if _, err := tbl.Filter(Or(Eq("Name", String("nobody")), failing)); err == nil {
		t.Error("Or should evaluate the second operand when the first is false")
	}
}

func TestCategoricalComparisons(t *testing.T) {
	levels := []string{"low", "medium", "high"}
	cat := func(s string) Value {
		v, ok := Categorical(s, levels)
		if !ok {
			t.Fatalf("Categorical(%q) failed", s)
		}
		return v
	}
	tbl, err := FromRows([]string{"Risk"}, [][]Value{{cat("high")}, {cat("low")}, {cat("medium")}})
	if err != nil {
		t.Fatal(err)
	}

	out, err := tbl.Filter(Ge("Risk", String("medium")))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("Risk >= medium matched %d rows, want 2", out.Len())
	}

	out, err = tbl.Filter(Eq("Risk", String("extreme")))
	if err != nil || out.Len() != 0 {
		t.Errorf("Risk == extreme: rows=%d err=%v", out.Len(), err)
	}

	if _, err := tbl.Filter(Lt("Risk", String("extreme"))); !errors.Is(err, ErrType) {
		t.Errorf("expected ErrType for unknown level ordering, got %v", err)
	}

	out, err = tbl.Filter(Or(HasPrefix("Risk", "h"), Contains("Risk", "dium")))
	if err != nil {
		t.Fatalf("label matching error = %v", err)
	}
	if out.Len() != 2 {
		t.Errorf("label matching kept %d rows, want 2", out.Len())
	}
}

func TestParseCompareOp(t *testing.T) {
	for in, want := range map[string]CompareOp{"eq": OpEq, "==": OpEq, "ne": OpNe, "lt": OpLt, ">=": OpGe} {
		got, err := ParseCompareOp(in)
		if err != nil || got != want {
			t.Errorf("ParseCompareOp(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCompareOp("~"); err == nil {
		t.Error("expected error for unknown operator")
	}
}
