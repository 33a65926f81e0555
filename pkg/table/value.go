// Package table provides the immutable columnar Table used by wrangle pipelines.
//
// A Table holds named, single-typed columns of equal length. Every operation
// (Select, Filter, Sort, WithColumn, Rename) returns a new Table and leaves the
// receiver untouched, so intermediate results can be kept and inspected while a
// pipeline is being built up step by step.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the type of the values held by a column.
type Kind int

const (
	// KindString holds free text.
	KindString Kind = iota
	// KindNumeric holds float64 values.
	KindNumeric
	// KindBool holds boolean values.
	KindBool
	// KindCategorical holds a label drawn from a fixed, ordered set of levels.
	KindCategorical
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MissingText is how a missing value is displayed.
const MissingText = "NA"

// Value is a single typed cell. The zero Value is the empty string.
//
// A missing Value still carries a Kind so that derived columns stay
// single-typed; comparisons against a missing value are always false and
// sorting places missing values last.
type Value struct {
	kind    Kind
	missing bool
	str     string
	num     float64
	b       bool
	level   int
	levels  []string
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric value. NaN is stored as a missing numeric value.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing(KindNumeric)
	}
	return Value{kind: KindNumeric, num: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Missing returns the missing marker for the given kind.
func Missing(kind Kind) Value {
	return Value{kind: kind, missing: true}
}

// Categorical returns the categorical value for label within levels.
// The levels slice is retained and must not be modified by the caller.
func Categorical(label string, levels []string) (Value, bool) {
	for i, l := range levels {
		if l == label {
			return Value{kind: KindCategorical, str: label, level: i, levels: levels}, true
		}
	}
	return Value{}, false
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return v.missing }

// Str returns the string content of a string or categorical value.
func (v Value) Str() (string, bool) {
	if v.missing || (v.kind != KindString && v.kind != KindCategorical) {
		return "", false
	}
	return v.str, true
}

// Num returns the content of a numeric value.
func (v Value) Num() (float64, bool) {
	if v.missing || v.kind != KindNumeric {
		return 0, false
	}
	return v.num, true
}

// Truth returns the content of a boolean value.
func (v Value) Truth() (bool, bool) {
	if v.missing || v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Level returns the level index of a categorical value.
func (v Value) Level() (int, bool) {
	if v.missing || v.kind != KindCategorical {
		return 0, false
	}
	return v.level, true
}

// Levels returns the level set of a categorical value.
func (v Value) Levels() []string {
	out := make([]string, len(v.levels))
	copy(out, v.levels)
	return out
}

// Text renders the value for a delimited text file. Missing values render empty.
func (v Value) Text() string {
	if v.missing {
		return ""
	}
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.str
	}
}

// String renders the value for display. Missing values render as NA.
func (v Value) String() string {
	if v.missing {
		return MissingText
	}
	return v.Text()
}

// Any returns the value as a plain Go value for expression engines:
// string, float64 or bool, and nil when missing.
func (v Value) Any() any {
	if v.missing {
		return nil
	}
	switch v.kind {
	case KindNumeric:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// Equal reports whether two values are identical, including kind.
// Two missing values of the same kind are equal; this is identity, not the
// comparison semantics used by predicates.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.missing != o.missing {
		return false
	}
	if v.missing {
		return true
	}
	switch v.kind {
	case KindNumeric:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return v.str == o.str
	}
}

// FromAny converts a plain Go value into a Value. Integers become numeric,
// nil becomes a missing string.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Missing(KindString), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}
