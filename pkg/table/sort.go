package table

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"rsc.io/ordered"
)

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts asc, ascending, desc and descending (case-insensitive).
// An empty string means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return 0, fmt.Errorf("unknown sort direction %q", s)
	}
}

// SortKey names a column and the direction to order it in.
type SortKey struct {
	Column    string
	Direction Direction
}

// Asc sorts column in ascending order.
func Asc(column string) SortKey { return SortKey{Column: column, Direction: Ascending} }

// Desc sorts column in descending order.
func Desc(column string) SortKey { return SortKey{Column: column, Direction: Descending} }

func (k SortKey) String() string { return k.Column + " " + k.Direction.String() }

// presence flags lead every key so missing values order last in both directions
const (
	keyPresent = 0
	keyMissing = 1
)

// Sort returns a new Table with rows ordered by keys. Rows are compared on the
// first key, ties are broken by the following keys, and rows tied on every key
// keep their input order. Missing values sort after all present values
// regardless of direction.
func (t *Table) Sort(keys ...SortKey) (*Table, error) {
	if len(keys) == 0 {
		return nil, &SchemaError{Message: "sort requires at least one key"}
	}
	cols := make([]*Column, len(keys))
	for i, k := range keys {
		c, ok := t.cols[k.Column]
		if !ok {
			return nil, t.unknown(k.Column)
		}
		cols[i] = c
	}

	encoded := make([][]byte, t.rows)
	for row := range encoded {
		var enc []byte
		for i, k := range keys {
			enc = appendSortKey(enc, cols[i].values[row], k.Direction)
		}
		encoded[row] = enc
	}

	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return bytes.Compare(encoded[a], encoded[b])
	})
	return t.take(idx), nil
}

// appendSortKey appends the order-preserving encoding of v. Within one column
// every present value encodes with the same type, so bytes.Compare on the
// concatenated keys gives the multi-key ordering.
func appendSortKey(enc []byte, v Value, dir Direction) []byte {
	if v.missing {
		return ordered.Append(enc, keyMissing)
	}
	enc = ordered.Append(enc, keyPresent)

	var x any
	switch v.kind {
	case KindNumeric:
		f := v.num
		if f == 0 {
			f = 0 // fold -0 into +0
		}
		x = f
	case KindBool:
		n := 0
		if v.b {
			n = 1
		}
		x = n
	case KindCategorical:
		x = v.level
	default:
		x = v.str
	}
	if dir == Descending {
		x = ordered.RevAny(x)
	}
	return ordered.Append(enc, x)
}
