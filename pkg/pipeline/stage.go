package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/canectors/wrangle/pkg/parse"
	"github.com/canectors/wrangle/pkg/table"
)

// Stage kinds, as reported by Stage.Kind.
const (
	KindDerive = "derive"
	KindParse  = "parse"
	KindFilter = "filter"
	KindSelect = "select"
	KindSort   = "sort"
	KindRename = "rename"

	// KindInspect stages observe the table and return it unchanged.
	KindInspect = "inspect"
)

// Stage is one named, parameterized transformation. Apply must not modify
// its input table.
type Stage interface {
	// Kind is one of the Kind* constants; it decides which row-count
	// invariants hold for the stage.
	Kind() string
	// Name is a human-readable description used in logs and errors.
	Name() string
	Apply(t *table.Table) (*table.Table, error)
}

// RowFunc computes a derived value from a row.
type RowFunc func(r table.Row) (table.Value, error)

// NumericFunc builds a RowFunc over the numeric columns named by inputs.
// When any input is missing the result is missing and fn is not called.
// A non-numeric input column is a TypeError.
func NumericFunc(fn func(args ...float64) float64, inputs ...string) RowFunc {
	return func(r table.Row) (table.Value, error) {
		args := make([]float64, len(inputs))
		for i, name := range inputs {
			kind, err := r.Kind(name)
			if err != nil {
				return table.Value{}, err
			}
			if kind != table.KindNumeric {
				return table.Value{}, &table.TypeError{Column: name, Op: "numeric derive", Got: kind, Want: "a numeric column"}
			}
			v, _ := r.Get(name)
			f, ok := v.Num()
			if !ok {
				return table.Missing(table.KindNumeric), nil
			}
			args[i] = f
		}
		return table.Number(fn(args...)), nil
	}
}

type deriveStage struct {
	target string
	desc   string
	fn     RowFunc
}

// Derive computes target from each row with fn. Non-finite numeric results
// (division by zero) are stored as missing.
func Derive(target, desc string, fn RowFunc) Stage {
	return deriveStage{target: target, desc: desc, fn: fn}
}

func (s deriveStage) Kind() string { return KindDerive }

func (s deriveStage) Name() string {
	if s.desc == "" {
		return fmt.Sprintf("derive %s", s.target)
	}
	return fmt.Sprintf("derive %s = %s", s.target, s.desc)
}

func (s deriveStage) Apply(t *table.Table) (*table.Table, error) {
	values := make([]table.Value, t.Len())
	for i := range values {
		v, err := s.fn(t.Row(i))
		if err != nil {
			return nil, err
		}
		if f, ok := v.Num(); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			v = table.Missing(table.KindNumeric)
		}
		values[i] = v
	}
	return t.WithColumn(s.target, values)
}

type parseStage struct {
	source string
	target string
	parser parse.Parser
}

// ParseColumn converts the string column source with p, storing the result
// in target. An empty target replaces the source column.
func ParseColumn(source, target string, p parse.Parser) Stage {
	if target == "" {
		target = source
	}
	return parseStage{source: source, target: target, parser: p}
}

func (s parseStage) Kind() string { return KindParse }

func (s parseStage) Name() string {
	if s.source == s.target {
		return fmt.Sprintf("parse %s as %s", s.source, s.parser)
	}
	return fmt.Sprintf("parse %s as %s into %s", s.source, s.parser, s.target)
}

func (s parseStage) Apply(t *table.Table) (*table.Table, error) {
	return parse.ParseColumn(t, s.source, s.target, s.parser)
}

type filterStage struct {
	pred table.Predicate
}

// Filter keeps the rows for which p is true.
func Filter(p table.Predicate) Stage { return filterStage{pred: p} }

func (s filterStage) Kind() string { return KindFilter }
func (s filterStage) Name() string { return "filter " + s.pred.String() }

func (s filterStage) Apply(t *table.Table) (*table.Table, error) {
	return t.Filter(s.pred)
}

type selectStage struct {
	names []string
}

// Select keeps the named columns, in order.
func Select(names ...string) Stage {
	return selectStage{names: append([]string(nil), names...)}
}

func (s selectStage) Kind() string { return KindSelect }
func (s selectStage) Name() string { return "select " + strings.Join(s.names, ", ") }

func (s selectStage) Apply(t *table.Table) (*table.Table, error) {
	return t.Select(s.names...)
}

type sortStage struct {
	keys []table.SortKey
}

// Sort orders rows by keys.
func Sort(keys ...table.SortKey) Stage {
	return sortStage{keys: append([]table.SortKey(nil), keys...)}
}

func (s sortStage) Kind() string { return KindSort }

func (s sortStage) Name() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = k.String()
	}
	return "sort " + strings.Join(parts, ", ")
}

func (s sortStage) Apply(t *table.Table) (*table.Table, error) {
	return t.Sort(s.keys...)
}

type renameStage struct {
	from, to string
}

// Rename renames column from to to.
func Rename(from, to string) Stage { return renameStage{from: from, to: to} }

func (s renameStage) Kind() string { return KindRename }
func (s renameStage) Name() string { return fmt.Sprintf("rename %s -> %s", s.from, s.to) }

func (s renameStage) Apply(t *table.Table) (*table.Table, error) {
	return t.Rename(s.from, s.to)
}
