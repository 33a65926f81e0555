package filter

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/internal/textio"
	"github.com/canectors/wrangle/pkg/parse"
	"github.com/canectors/wrangle/pkg/table"
)

const patientsTSV = `Name	Sex	Smoker	Weight	Height
Alice	Female	No	64kg	160
Bob	Male	Yes	90kg	180
Carol	Female	Yes	70kg	
Dan	Male	No	80kg	175
`

// rawPatients loads the fixture with every column as strings.
func rawPatients(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := textio.Read(strings.NewReader(patientsTSV), textio.Tab)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return tbl
}

// patients loads the fixture with Weight and Height numeric; Carol's height
// is missing.
func patients(t *testing.T) *table.Table {
	t.Helper()
	tbl := rawPatients(t)

	height, err := tbl.Column("Height")
	if err != nil {
		t.Fatal(err)
	}
	values := height.Values()
	for i, v := range values {
		if s, _ := v.Str(); s == "" {
			values[i] = table.Missing(table.KindString)
		}
	}
	if tbl, err = tbl.WithColumn("Height", values); err != nil {
		t.Fatal(err)
	}

	if tbl, err = parse.ParseColumn(tbl, "Weight", "Weight", parse.NumericWithSuffix("kg")); err != nil {
		t.Fatal(err)
	}
	if tbl, err = parse.ParseColumn(tbl, "Height", "Height", parse.Numeric()); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func columnText(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	col, err := tbl.Column(name)
	if err != nil {
		t.Fatalf("column %s: %v", name, err)
	}
	out := make([]string, col.Len())
	for i := range out {
		out[i] = col.Value(i).String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// captureLogs redirects the package logger to a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}
