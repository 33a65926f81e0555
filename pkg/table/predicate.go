package table

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Predicate is a pure boolean test over a single row.
// Evaluate must not have side effects, so filters are repeatable.
type Predicate interface {
	Evaluate(r Row) (bool, error)
	String() string
}

// PredicateFunc adapts a plain function to the Predicate interface.
type PredicateFunc struct {
	Desc string
	Fn   func(r Row) (bool, error)
}

// Evaluate implements Predicate.
func (p PredicateFunc) Evaluate(r Row) (bool, error) { return p.Fn(r) }

func (p PredicateFunc) String() string {
	if p.Desc == "" {
		return "func"
	}
	return p.Desc
}

// CompareOp is a comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// ParseCompareOp accepts both symbolic (==) and named (eq) operators.
func ParseCompareOp(s string) (CompareOp, error) {
	switch strings.ToLower(s) {
	case "==", "=", "eq":
		return OpEq, nil
	case "!=", "ne", "neq":
		return OpNe, nil
	case "<", "lt":
		return OpLt, nil
	case "<=", "le", "lte":
		return OpLe, nil
	case ">", "gt":
		return OpGt, nil
	case ">=", "ge", "gte":
		return OpGe, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}

type comparison struct {
	column string
	op     CompareOp
	value  Value
}

// Compare returns a predicate comparing a column against a literal value.
// A string literal is coerced to the column's kind at evaluation time.
func Compare(column string, op CompareOp, value Value) Predicate {
	return comparison{column: column, op: op, value: value}
}

// Eq tests column == value.
func Eq(column string, value Value) Predicate { return Compare(column, OpEq, value) }

// Ne tests column != value. A missing cell is never unequal.
func Ne(column string, value Value) Predicate { return Compare(column, OpNe, value) }

// Lt tests column < value.
func Lt(column string, value Value) Predicate { return Compare(column, OpLt, value) }

// Le tests column <= value.
func Le(column string, value Value) Predicate { return Compare(column, OpLe, value) }

// Gt tests column > value.
func Gt(column string, value Value) Predicate { return Compare(column, OpGt, value) }

// Ge tests column >= value.
func Ge(column string, value Value) Predicate { return Compare(column, OpGe, value) }

func (c comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.column, c.op, quoteLiteral(c.value))
}

func (c comparison) Evaluate(r Row) (bool, error) {
	cell, err := r.Get(c.column)
	if err != nil {
		return false, err
	}
	if cell.missing || c.value.missing {
		return false, nil
	}
	kind, _ := r.Kind(c.column)
	lit, ok := coerce(c.value, cell)
	if !ok {
		if cell.kind == KindCategorical && (c.op == OpEq || c.op == OpNe) {
			// a label outside the level set can never be equal
			return c.op == OpNe, nil
		}
		return false, &TypeError{Column: c.column, Op: "compare " + c.op.String(), Got: kind, Want: "a " + c.value.kind.String() + " column"}
	}
	if cell.kind == KindBool && c.op != OpEq && c.op != OpNe {
		return false, &TypeError{Column: c.column, Op: "compare " + c.op.String(), Got: kind, Want: "an ordered column"}
	}
	res := compareValues(cell, lit)
	switch c.op {
	case OpEq:
		return res == 0, nil
	case OpNe:
		return res != 0, nil
	case OpLt:
		return res < 0, nil
	case OpLe:
		return res <= 0, nil
	case OpGt:
		return res > 0, nil
	case OpGe:
		return res >= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %d", int(c.op))
	}
}

// coerce converts lit to the kind of cell. String literals are parsed into
// numeric, bool or categorical; numeric and bool literals only match their own
// kind. A string column accepts only string literals.
func coerce(lit, cell Value) (Value, bool) {
	if lit.kind == cell.kind && lit.kind != KindCategorical {
		return lit, true
	}
	switch cell.kind {
	case KindCategorical:
		label := lit.Text()
		return Categorical(label, cell.levels)
	case KindNumeric:
		if lit.kind != KindString {
			return Value{}, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(lit.str), 64)
		if err != nil {
			return Value{}, false
		}
		return Number(f), true
	case KindBool:
		if lit.kind != KindString {
			return Value{}, false
		}
		b, err := strconv.ParseBool(strings.TrimSpace(lit.str))
		if err != nil {
			return Value{}, false
		}
		return Bool(b), true
	}
	return Value{}, false
}

// compareValues orders two present values of the same kind.
func compareValues(a, b Value) int {
	switch a.kind {
	case KindNumeric:
		return cmp.Compare(a.num, b.num)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindCategorical:
		return cmp.Compare(a.level, b.level)
	default:
		return strings.Compare(a.str, b.str)
	}
}

type membership struct {
	column string
	set    []Value
}

// In tests whether the column's value is one of values.
func In(column string, values ...Value) Predicate {
	return membership{column: column, set: values}
}

func (m membership) String() string {
	parts := make([]string, len(m.set))
	for i, v := range m.set {
		parts[i] = quoteLiteral(v)
	}
	return fmt.Sprintf("%s in [%s]", m.column, strings.Join(parts, ", "))
}

func (m membership) Evaluate(r Row) (bool, error) {
	for _, v := range m.set {
		ok, err := Eq(m.column, v).Evaluate(r)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

type pattern struct {
	column string
	text   string
	prefix bool
}

// Contains tests whether a string column contains substr. A categorical
// column is matched on its labels; any other kind is a TypeError.
func Contains(column, substr string) Predicate {
	return pattern{column: column, text: substr}
}

// HasPrefix tests whether a string column starts with prefix. A categorical
// column is matched on its labels; any other kind is a TypeError.
func HasPrefix(column, prefix string) Predicate {
	return pattern{column: column, text: prefix, prefix: true}
}

func (p pattern) String() string {
	if p.prefix {
		return fmt.Sprintf("%s starts with %q", p.column, p.text)
	}
	return fmt.Sprintf("%s contains %q", p.column, p.text)
}

func (p pattern) Evaluate(r Row) (bool, error) {
	kind, err := r.Kind(p.column)
	if err != nil {
		return false, err
	}
	if kind != KindString && kind != KindCategorical {
		op := "contains"
		if p.prefix {
			op = "prefix"
		}
		return false, &TypeError{Column: p.column, Op: op, Got: kind, Want: "a string or categorical column"}
	}
	cell, _ := r.Get(p.column)
	if cell.missing {
		return false, nil
	}
	if p.prefix {
		return strings.HasPrefix(cell.str, p.text), nil
	}
	return strings.Contains(cell.str, p.text), nil
}

type missingTest struct{ column string }

// IsMissing tests whether the column's value is the missing marker.
func IsMissing(column string) Predicate { return missingTest{column: column} }

func (m missingTest) String() string { return m.column + " is missing" }

func (m missingTest) Evaluate(r Row) (bool, error) {
	cell, err := r.Get(m.column)
	if err != nil {
		return false, err
	}
	return cell.missing, nil
}

type conjunction []Predicate

// And is true when every predicate is true. Evaluation stops at the first
// false or failing predicate. An empty And is true.
func And(ps ...Predicate) Predicate { return conjunction(ps) }

func (c conjunction) String() string { return joinPredicates([]Predicate(c), " && ") }

func (c conjunction) Evaluate(r Row) (bool, error) {
	for _, p := range c {
		ok, err := p.Evaluate(r)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type disjunction []Predicate

// Or is true when any predicate is true. Evaluation stops at the first
// true or failing predicate. An empty Or is false.
func Or(ps ...Predicate) Predicate { return disjunction(ps) }

func (d disjunction) String() string { return joinPredicates([]Predicate(d), " || ") }

func (d disjunction) Evaluate(r Row) (bool, error) {
	for _, p := range d {
		ok, err := p.Evaluate(r)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type negation struct{ p Predicate }

// Not negates p.
func Not(p Predicate) Predicate { return negation{p: p} }

func (n negation) String() string { return "!(" + n.p.String() + ")" }

func (n negation) Evaluate(r Row) (bool, error) {
	ok, err := n.p.Evaluate(r)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func joinPredicates(ps []Predicate, sep string) string {
	if len(ps) == 0 {
		return "()"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func quoteLiteral(v Value) string {
	if v.kind == KindString || v.kind == KindCategorical {
		if !v.missing {
			return strconv.Quote(v.str)
		}
	}
	return v.String()
}
