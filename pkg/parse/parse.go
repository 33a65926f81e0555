// Package parse converts raw text cells into typed table values.
//
// Loading never parses: a freshly loaded table is all strings, and parsers are
// applied explicitly, one column at a time, by a pipeline stage.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/canectors/wrangle/pkg/table"
)

// Parser converts one raw cell into a typed value.
type Parser interface {
	Parse(raw string) (table.Value, error)
	// Kind is the kind of every value the parser produces.
	Kind() table.Kind
	String() string
}

// ErrSuffixMissing is wrapped by ParseError when a cell lacks the expected unit suffix.
var ErrSuffixMissing = errors.New("unit suffix missing")

// ErrNotDecimal is wrapped by ParseError for NaN, Inf, hexadecimal and other
// forms strconv accepts that are not plain decimal numbers.
var ErrNotDecimal = errors.New("not a finite decimal number")

type boolParser struct {
	tokens map[string]struct{}
	list   []string
}

// Bool recognizes trueTokens (exact match) as true; everything else is false.
// It never fails.
func Bool(trueTokens ...string) Parser {
	p := boolParser{tokens: make(map[string]struct{}, len(trueTokens)), list: trueTokens}
	for _, tok := range trueTokens {
		p.tokens[tok] = struct{}{}
	}
	return p
}

func (p boolParser) Parse(raw string) (table.Value, error) {
	_, ok := p.tokens[raw]
	return table.Bool(ok), nil
}

func (p boolParser) Kind() table.Kind { return table.KindBool }

func (p boolParser) String() string {
	return fmt.Sprintf("bool(true=%s)", strings.Join(p.list, "|"))
}

type numericParser struct {
	suffix string
}

// Numeric parses plain floating-point numbers.
func Numeric() Parser { return numericParser{} }

// NumericWithSuffix strips suffix from the end of the cell and parses the
// rest as a float64. The suffix is a literal anchored to the end of the
// trimmed cell; a cell without it is a ParseError. Only decimal notation is
// accepted, optionally with an exponent.
func NumericWithSuffix(suffix string) Parser { return numericParser{suffix: suffix} }

func (p numericParser) Parse(raw string) (table.Value, error) {
	s := strings.TrimSpace(raw)
	want := "number"
	if p.suffix != "" {
		want = "number with suffix " + strconv.Quote(p.suffix)
		trimmed, ok := strings.CutSuffix(s, p.suffix)
		if !ok {
			return table.Value{}, &table.ParseError{Row: -1, Input: raw, Want: want, Err: ErrSuffixMissing}
		}
		s = strings.TrimSpace(trimmed)
	}
	if s == "" || strings.Trim(s, "0123456789+-.eE") != "" {
		return table.Value{}, &table.ParseError{Row: -1, Input: raw, Want: want, Err: ErrNotDecimal}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return table.Value{}, &table.ParseError{Row: -1, Input: raw, Want: want, Err: err}
	}
	return table.Number(f), nil
}

func (p numericParser) Kind() table.Kind { return table.KindNumeric }

func (p numericParser) String() string {
	if p.suffix == "" {
		return "numeric"
	}
	return fmt.Sprintf("numeric(suffix=%q)", p.suffix)
}

type categoricalParser struct {
	levels []string
}

// Categorical accepts only the given levels, which also define the sort order.
// With no levels, ParseColumn collects them from the column in order of first
// appearance.
func Categorical(levels ...string) Parser {
	return categoricalParser{levels: levels}
}

func (p categoricalParser) Parse(raw string) (table.Value, error) {
	v, ok := table.Categorical(raw, p.levels)
	if !ok {
		return table.Value{}, &table.ParseError{
			Row:   -1,
			Input: raw,
			Want:  fmt.Sprintf("one of [%s]", strings.Join(p.levels, ", ")),
		}
	}
	return v, nil
}

func (p categoricalParser) Kind() table.Kind { return table.KindCategorical }

func (p categoricalParser) String() string {
	return fmt.Sprintf("categorical(%s)", strings.Join(p.levels, "|"))
}

type stringParser struct{}

// String keeps the cell as-is.
func String() Parser { return stringParser{} }

func (stringParser) Parse(raw string) (table.Value, error) { return table.String(raw), nil }

func (stringParser) Kind() table.Kind { return table.KindString }

func (stringParser) String() string { return "string" }

// ParseColumn applies p to every cell of the string column source and stores
// the result in target (which may equal source). Missing cells stay missing.
// Errors carry the column name and row index of the offending cell.
func ParseColumn(t *table.Table, source, target string, p Parser) (*table.Table, error) {
	col, err := t.Column(source)
	if err != nil {
		return nil, err
	}
	if col.Kind() != table.KindString {
		return nil, &table.TypeError{Column: source, Op: "parse as " + p.String(), Got: col.Kind(), Want: "a string column"}
	}
	if cp, ok := p.(categoricalParser); ok && len(cp.levels) == 0 {
		p = categoricalParser{levels: collectLevels(col)}
	}

	values := make([]table.Value, col.Len())
	for i := range values {
		cell := col.Value(i)
		if cell.IsMissing() {
			values[i] = table.Missing(p.Kind())
			continue
		}
		raw, _ := cell.Str()
		v, err := p.Parse(raw)
		if err != nil {
			var pe *table.ParseError
			if errors.As(err, &pe) {
				located := *pe
				located.Column = source
				located.Row = i
				return nil, &located
			}
			return nil, fmt.Errorf("column %q row %d: %w", source, i, err)
		}
		values[i] = v
	}
	return t.WithColumn(target, values)
}

func collectLevels(col *table.Column) []string {
	seen := make(map[string]struct{})
	var levels []string
	for i := 0; i < col.Len(); i++ {
		s, ok := col.Value(i).Str()
		if !ok {
			continue
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			levels = append(levels, s)
		}
	}
	return levels
}
