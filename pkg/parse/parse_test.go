package parse

import (
	"errors"
	"testing"

	"github.com/canectors/wrangle/pkg/table"
)

func rawTable(t *testing.T, name string, cells ...string) *table.Table {
	t.Helper()
	rows := make([][]table.Value, len(cells))
	for i, c := range cells {
		rows[i] = []table.Value{table.String(c)}
	}
	tbl, err := table.FromRows([]string{name}, rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return tbl
}

func TestBool(t *testing.T) {
	p := Bool("TRUE", "Yes")
	tests := []struct {
		in   string
		want bool
	}{
		{"TRUE", true},
		{"Yes", true},
		{"yes", false},
		{"FALSE", false},
		{"", false},
		{"anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := p.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if got, _ := v.Truth(); got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumericWithSuffix(t *testing.T) {
	tests := []struct {
		name    string
		suffix  string
		in      string
		want    float64
		wantErr error
	}{
		{"kg", "kg", "70kg", 70, nil},
		{"decimal cm", "cm", "172.5cm", 172.5, nil},
		{"spaced", "kg", " 81 kg ", 81, nil},
		{"suffix only at the end", "kg", "kg70", 0, ErrSuffixMissing},
		{"missing suffix", "kg", "70", 0, ErrSuffixMissing},
		{"not a number", "kg", "unknownkg", 0, table.ErrParse},
		{"unknown", "kg", "unknown", 0, table.ErrParse},
		{"plain", "", "42", 42, nil},
		{"exponent", "", "1.5e2", 150, nil},
		{"NaN", "kg", "NaNkg", 0, ErrNotDecimal},
		{"Inf", "kg", "Infkg", 0, ErrNotDecimal},
		{"signed infinity", "", "-Infinity", 0, ErrNotDecimal},
		{"hexadecimal", "", "0x1p4", 0, ErrNotDecimal},
		{"underscores", "", "1_000", 0, ErrNotDecimal},
		{"empty", "", "", 0, ErrNotDecimal},
		{"overflow", "", "1e400", 0, table.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NumericWithSuffix(tt.suffix).Parse(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if got, _ := v.Num(); got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseColumnRejectsNonFinite(t *testing.T) {
	tbl := rawTable(t, "Weight", "70kg", "NaNkg")
	_, err := ParseColumn(tbl, "Weight", "Weight", NumericWithSuffix("kg"))
	var pe *table.ParseError
	if !errors.As(err, &pe) || !errors.Is(err, ErrNotDecimal) {
		t.Fatalf("ParseColumn() error = %v, want ParseError wrapping ErrNotDecimal", err)
	}
	if pe.Row != 1 {
		t.Errorf("Row = %d, want 1", pe.Row)
	}
}

func TestParseColumn(t *testing.T) {
	t.Run("numeric with suffix", func(t *testing.T) {
		tbl := rawTable(t, "Weight", "70kg", "90kg")
		out, err := ParseColumn(tbl, "Weight", "Weight", NumericWithSuffix("kg"))
		if err != nil {
			t.Fatalf("ParseColumn() error = %v", err)
		}
		col, _ := out.Column("Weight")
		if col.Kind() != table.KindNumeric {
			t.Fatalf("kind = %v, want numeric", col.Kind())
		}
		for i, want := range []float64{70, 90} {
			if got, _ := col.Value(i).Num(); got != want {
				t.Errorf("Weight[%d] = %v, want %v", i, got, want)
			}
		}
		orig, _ := tbl.Column("Weight")
		if orig.Kind() != table.KindString {
			t.Error("input table was modified")
		}
	})

	t.Run("error locates the cell", func(t *testing.T) {
		tbl := rawTable(t, "Weight", "70kg", "unknown")
		_, err := ParseColumn(tbl, "Weight", "Weight", NumericWithSuffix("kg"))
		var pe *table.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if pe.Column != "Weight" || pe.Row != 1 || pe.Input != "unknown" {
			t.Errorf("ParseError = %+v", pe)
		}
	})

	t.Run("non-string source", func(t *testing.T) {
		tbl, _ := table.FromRows([]string{"n"}, [][]table.Value{{table.Number(1)}})
		_, err := ParseColumn(tbl, "n", "n", Numeric())
		if !errors.Is(err, table.ErrType) {
			t.Fatalf("expected ErrType, got %v", err)
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		tbl := rawTable(t, "a", "x")
		_, err := ParseColumn(tbl, "b", "b", String())
		if !errors.Is(err, table.ErrUnknownColumn) {
			t.Fatalf("expected ErrUnknownColumn, got %v", err)
		}
	})

	t.Run("categorical collects levels", func(t *testing.T) {
		tbl := rawTable(t, "Sex", "Male", "Female", "Male")
		out, err := ParseColumn(tbl, "Sex", "sex_f", Categorical())
		if err != nil {
			t.Fatalf("ParseColumn() error = %v", err)
		}
		col, _ := out.Column("sex_f")
		if col.Kind() != table.KindCategorical {
			t.Fatalf("kind = %v", col.Kind())
		}
		if lvl, _ := col.Value(1).Level(); lvl != 1 {
			t.Errorf("Female level = %d, want 1", lvl)
		}
		if got := len(out.Names()); got != 2 {
			t.Errorf("expected a new column, names = %v", out.Names())
		}
	})

	t.Run("categorical rejects unknown level", func(t *testing.T) {
		tbl := rawTable(t, "Sex", "Male", "Other")
		_, err := ParseColumn(tbl, "Sex", "Sex", Categorical("Male", "Female"))
		if !errors.Is(err, table.ErrParse) {
			t.Fatalf("expected ErrParse, got %v", err)
		}
	})

	t.Run("missing stays missing", func(t *testing.T) {
		tbl, _ := table.FromRows([]string{"w"}, [][]table.Value{{table.String("1kg")}, {table.Missing(table.KindString)}})
		out, err := ParseColumn(tbl, "w", "w", NumericWithSuffix("kg"))
		if err != nil {
			t.Fatalf("ParseColumn() error = %v", err)
		}
		col, _ := out.Column("w")
		if !col.Value(1).IsMissing() || col.Kind() != table.KindNumeric {
			t.Errorf("w[1] = %v (kind %v)", col.Value(1), col.Kind())
		}
	})
}
