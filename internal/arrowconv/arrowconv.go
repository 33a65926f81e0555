// Package arrowconv converts tables to and from Apache Arrow records.
//
// Numeric columns map to float64, bool columns to boolean, and string and
// categorical columns to utf8. A categorical column keeps its levels in the
// field metadata so that reading the record back restores the factor. A
// field is nullable when the column holds at least one missing value.
//
// Records are allocated with an arrow memory.Allocator and must be released
// by the caller.
package arrowconv

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/canectors/wrangle/pkg/table"
)

// Field metadata keys.
const (
	MetaKind   = "wrangle.kind"
	MetaLevels = "wrangle.levels"
)

// levelSeparator joins categorical levels in field metadata.
const levelSeparator = "\x1f"

// Schema returns the Arrow schema matching t.
func Schema(t *table.Table) (*arrow.Schema, error) {
	names := t.Names()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		fields[i] = field(col)
	}
	return arrow.NewSchema(fields, nil), nil
}

func field(col *table.Column) arrow.Field {
	f := arrow.Field{Name: col.Name(), Nullable: hasMissing(col)}
	keys := []string{MetaKind}
	values := []string{col.Kind().String()}

	switch col.Kind() {
	case table.KindNumeric:
		f.Type = arrow.PrimitiveTypes.Float64
	case table.KindBool:
		f.Type = arrow.FixedWidthTypes.Boolean
	case table.KindCategorical:
		f.Type = arrow.BinaryTypes.String
		keys = append(keys, MetaLevels)
		values = append(values, strings.Join(levelsOf(col), levelSeparator))
	default:
		f.Type = arrow.BinaryTypes.String
	}
	f.Metadata = arrow.NewMetadata(keys, values)
	return f
}

func hasMissing(col *table.Column) bool {
	for i := 0; i < col.Len(); i++ {
		if col.Value(i).IsMissing() {
			return true
		}
	}
	return false
}

// levelsOf returns the levels of the first non-missing value of a
// categorical column, or none when every value is missing.
func levelsOf(col *table.Column) []string {
	for i := 0; i < col.Len(); i++ {
		if v := col.Value(i); !v.IsMissing() {
			return v.Levels()
		}
	}
	return nil
}

// Record converts t into a single Arrow record allocated from mem.
func Record(t *table.Table, mem memory.Allocator) (arrow.Record, error) {
	schema, err := Schema(t)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, name := range t.Names() {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if err := appendColumn(b.Field(i), col); err != nil {
			return nil, err
		}
	}
	return b.NewRecord(), nil
}

func appendColumn(fb array.Builder, col *table.Column) error {
	fb.Reserve(col.Len())
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if v.IsMissing() {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.Float64Builder:
			f, _ := v.Num()
			b.Append(f)
		case *array.BooleanBuilder:
			x, _ := v.Truth()
			b.Append(x)
		case *array.StringBuilder:
			b.Append(v.Text())
		default:
			return fmt.Errorf("column %q: unsupported arrow builder %T", col.Name(), fb)
		}
	}
	return nil
}

// FromRecord converts an Arrow record back into a table. Columns of types
// other than float64, boolean and utf8 are rejected; integer and float32
// columns are widened to numeric.
func FromRecord(rec arrow.Record) (*table.Table, error) {
	schema := rec.Schema()
	cols := make([]*table.Column, 0, rec.NumCols())
	for i, f := range schema.Fields() {
		values, err := columnValues(f, rec.Column(i))
		if err != nil {
			return nil, err
		}
		col, err := table.NewColumn(f.Name, values)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return table.FromColumns(cols...)
}

// SplitLevels decodes the categorical levels stored under MetaLevels.
func SplitLevels(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, levelSeparator)
}

func columnValues(f arrow.Field, arr arrow.Array) ([]table.Value, error) {
	n := arr.Len()
	values := make([]table.Value, n)

	var levels []string
	if joined, ok := f.Metadata.GetValue(MetaLevels); ok {
		levels = SplitLevels(joined)
	}

	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			values[i] = table.Missing(kindOf(f, levels))
			continue
		}
		switch a := arr.(type) {
		case *array.Float64:
			values[i] = table.Number(a.Value(i))
		case *array.Float32:
			values[i] = table.Number(float64(a.Value(i)))
		case *array.Int64:
			values[i] = table.Number(float64(a.Value(i)))
		case *array.Int32:
			values[i] = table.Number(float64(a.Value(i)))
		case *array.Boolean:
			values[i] = table.Bool(a.Value(i))
		case *array.String:
			if levels == nil {
				values[i] = table.String(a.Value(i))
				continue
			}
			v, ok := table.Categorical(a.Value(i), levels)
			if !ok {
				return nil, &table.ParseError{Column: f.Name, Row: i, Input: a.Value(i), Want: "categorical"}
			}
			values[i] = v
		default:
			return nil, &table.TypeError{Column: f.Name, Op: "arrow import", Got: table.KindString, Want: "float64, boolean or utf8 (got " + arr.DataType().String() + ")"}
		}
	}
	return values, nil
}

func kindOf(f arrow.Field, levels []string) table.Kind {
	switch f.Type.ID() {
	case arrow.FLOAT64, arrow.FLOAT32, arrow.INT64, arrow.INT32:
		return table.KindNumeric
	case arrow.BOOL:
		return table.KindBool
	}
	if levels != nil {
		return table.KindCategorical
	}
	return table.KindString
}

// WriteIPC writes t to w in the Arrow IPC file format.
func WriteIPC(w io.Writer, t *table.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := Record(t, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	return fw.Close()
}

// ReadIPC reads every record of an Arrow IPC file and concatenates them
// into one table.
func ReadIPC(r ipc.ReadAtSeeker) (*table.Table, error) {
	mem := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer fr.Close()

	var out *table.Table
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read arrow record %d: %w", i, err)
		}
		t, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		if out, err = appendRows(out, t); err != nil {
			return nil, err
		}
	}
	if out == nil {
		return nil, &table.SchemaError{Message: "arrow file holds no records"}
	}
	return out, nil
}

func appendRows(acc, t *table.Table) (*table.Table, error) {
	if acc == nil {
		return t, nil
	}
	names := acc.Names()
	rows := make([][]table.Value, 0, acc.Len()+t.Len())
	for _, src := range []*table.Table{acc, t} {
		for _, r := range src.Rows() {
			row := make([]table.Value, len(names))
			for j, name := range names {
				v, err := r.Get(name)
				if err != nil {
					return nil, err
				}
				row[j] = v
			}
			rows = append(rows, row)
		}
	}
	return table.FromRows(names, rows)
}

// WriteParquet writes t to w as a Snappy-compressed Parquet file. The Arrow
// schema is stored alongside so categorical levels survive.
func WriteParquet(w io.Writer, t *table.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := Record(t, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy), parquet.WithAllocator(mem))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	pw, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := pw.Write(rec); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	return pw.Close()
}
