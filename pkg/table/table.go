package table

import (
	"fmt"
	"slices"
)

// Column is a named, single-typed sequence of values, one per row.
// Columns are immutable once they belong to a Table.
type Column struct {
	name   string
	kind   Kind
	values []Value
}

// NewColumn builds a column from values. The kind is taken from the first
// non-missing value; a column made only of missing values takes the kind of
// its first value, or string when empty. Mixed kinds are a SchemaError.
// Missing values are retagged with the column kind.
func NewColumn(name string, values []Value) (*Column, error) {
	if name == "" {
		return nil, &SchemaError{Message: "column name cannot be empty"}
	}
	return buildColumn(name, slices.Clone(values))
}

// buildColumn takes ownership of values.
func buildColumn(name string, values []Value) (*Column, error) {
	kind, err := columnKind(name, values)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v.missing && v.kind != kind {
			values[i] = Missing(kind)
		}
	}
	return &Column{name: name, kind: kind, values: values}, nil
}

func columnKind(name string, values []Value) (Kind, error) {
	if len(values) == 0 {
		return KindString, nil
	}
	kind := values[0].kind
	found := false
	for i, v := range values {
		if v.missing {
			continue
		}
		if !found {
			kind, found = v.kind, true
			continue
		}
		if v.kind != kind {
			return 0, &SchemaError{Message: fmt.Sprintf("column %q mixes %s and %s values (row %d)", name, kind, v.kind, i)}
		}
	}
	return kind, nil
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the kind of the column's values.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of values.
func (c *Column) Len() int { return len(c.values) }

// Value returns the value at row i.
func (c *Column) Value(i int) Value { return c.values[i] }

// Values returns a copy of the column's values.
func (c *Column) Values() []Value { return slices.Clone(c.values) }

// Table is an immutable in-memory dataset of named columns and ordered rows.
type Table struct {
	names []string
	cols  map[string]*Column
	rows  int
}

// FromRows builds a Table from ordered column names and equal-length rows.
func FromRows(columnNames []string, rows [][]Value) (*Table, error) {
	if err := checkNames(columnNames); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(columnNames) {
			return nil, &SchemaError{Message: fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(columnNames))}
		}
	}

	t := &Table{
		names: slices.Clone(columnNames),
		cols:  make(map[string]*Column, len(columnNames)),
		rows:  len(rows),
	}
	for j, name := range columnNames {
		values := make([]Value, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		col, err := buildColumn(name, values)
		if err != nil {
			return nil, err
		}
		t.cols[name] = col
	}
	return t, nil
}

// FromColumns builds a Table from whole columns, in order.
func FromColumns(cols ...*Column) (*Table, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	t := &Table{names: names, cols: make(map[string]*Column, len(cols))}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, &LengthMismatchError{Column: c.name, Got: c.Len(), Want: t.rows}
		}
		t.cols[c.name] = c
	}
	return t, nil
}

func checkNames(names []string) error {
	if len(names) == 0 {
		return &SchemaError{Message: "table must have at least one column"}
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return &SchemaError{Message: "column name cannot be empty"}
		}
		if _, dup := seen[n]; dup {
			return &SchemaError{Message: fmt.Sprintf("duplicate column name %q", n)}
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Names returns the ordered column names.
func (t *Table) Names() []string { return slices.Clone(t.names) }

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, error) {
	c, ok := t.cols[name]
	if !ok {
		return nil, t.unknown(name)
	}
	return c, nil
}

func (t *Table) unknown(name string) *UnknownColumnError {
	return &UnknownColumnError{Column: name, Available: t.Names()}
}

// WithColumn returns a new Table with the column added at the end, or
// replaced in place when a column of that name already exists.
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if len(values) != t.rows {
		return nil, &LengthMismatchError{Column: name, Got: len(values), Want: t.rows}
	}
	col, err := NewColumn(name, values)
	if err != nil {
		return nil, err
	}

	out := &Table{names: t.Names(), cols: make(map[string]*Column, len(t.cols)+1), rows: t.rows}
	for k, c := range t.cols {
		out.cols[k] = c
	}
	if _, exists := t.cols[name]; !exists {
		out.names = append(out.names, name)
	}
	out.cols[name] = col
	return out, nil
}

// Select returns a new Table restricted to names, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	if len(names) == 0 {
		return nil, &SchemaError{Message: "select requires at least one column"}
	}
	out := &Table{names: make([]string, 0, len(names)), cols: make(map[string]*Column, len(names)), rows: t.rows}
	for _, n := range names {
		c, ok := t.cols[n]
		if !ok {
			return nil, t.unknown(n)
		}
		if _, dup := out.cols[n]; dup {
			return nil, &SchemaError{Message: fmt.Sprintf("column %q selected twice", n)}
		}
		out.names = append(out.names, n)
		out.cols[n] = c
	}
	return out, nil
}

// Rename returns a new Table with column from renamed to to, keeping its position.
func (t *Table) Rename(from, to string) (*Table, error) {
	c, ok := t.cols[from]
	if !ok {
		return nil, t.unknown(from)
	}
	if to == "" {
		return nil, &SchemaError{Message: "column name cannot be empty"}
	}
	if from == to {
		return t, nil
	}
	if _, clash := t.cols[to]; clash {
		return nil, &SchemaError{Message: fmt.Sprintf("cannot rename %q to %q: column already exists", from, to)}
	}

	out := &Table{names: t.Names(), cols: make(map[string]*Column, len(t.cols)), rows: t.rows}
	for k, col := range t.cols {
		if k != from {
			out.cols[k] = col
		}
	}
	out.cols[to] = &Column{name: to, kind: c.kind, values: c.values}
	out.names[slices.Index(out.names, from)] = to
	return out, nil
}

// Filter returns a new Table holding only the rows for which p is true,
// in their original order. The first predicate error aborts the filter.
func (t *Table) Filter(p Predicate) (*Table, error) {
	keep := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		ok, err := p.Evaluate(Row{t: t, i: i})
		if err != nil {
			return nil, err
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return t.take(keep), nil
}

// Head returns the first n rows (all rows when n exceeds the row count).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.rows {
		n = t.rows
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.take(idx)
}

// take returns a new Table holding the rows at idx, in idx order.
func (t *Table) take(idx []int) *Table {
	out := &Table{names: t.Names(), cols: make(map[string]*Column, len(t.cols)), rows: len(idx)}
	for name, c := range t.cols {
		values := make([]Value, len(idx))
		for j, i := range idx {
			values[j] = c.values[i]
		}
		out.cols[name] = &Column{name: name, kind: c.kind, values: values}
	}
	return out
}

// Row returns a read-only view of row i.
func (t *Table) Row(i int) Row {
	if i < 0 || i >= t.rows {
		panic(fmt.Sprintf("table: row index %d out of range [0,%d)", i, t.rows))
	}
	return Row{t: t, i: i}
}

// Rows returns a view of every row, in order.
func (t *Table) Rows() []Row {
	out := make([]Row, t.rows)
	for i := range out {
		out[i] = Row{t: t, i: i}
	}
	return out
}

// Equal reports whether both tables have the same columns in the same order,
// the same kinds and identical values.
func (t *Table) Equal(o *Table) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.rows != o.rows || !slices.Equal(t.names, o.names) {
		return false
	}
	for _, n := range t.names {
		a, b := t.cols[n], o.cols[n]
		if a.kind != b.kind {
			return false
		}
		if !slices.EqualFunc(a.values, b.values, Value.Equal) {
			return false
		}
	}
	return true
}

// Row is a read-only view of one row of a Table.
type Row struct {
	t *Table
	i int
}

// Index returns the row's position in its table.
func (r Row) Index() int { return r.i }

// Get returns the value of the named column in this row.
func (r Row) Get(name string) (Value, error) {
	c, ok := r.t.cols[name]
	if !ok {
		return Value{}, r.t.unknown(name)
	}
	return c.values[r.i], nil
}

// Kind returns the kind of the named column.
func (r Row) Kind(name string) (Kind, error) {
	c, ok := r.t.cols[name]
	if !ok {
		return 0, r.t.unknown(name)
	}
	return c.kind, nil
}

// Names returns the column names of the row's table.
func (r Row) Names() []string { return r.t.Names() }

// Env returns the row as a map of plain Go values keyed by column name,
// with missing values as nil.
func (r Row) Env() map[string]any {
	env := make(map[string]any, len(r.t.names))
	for _, n := range r.t.names {
		env[n] = r.t.cols[n].values[r.i].Any()
	}
	return env
}
