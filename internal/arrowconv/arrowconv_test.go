package arrowconv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/canectors/wrangle/pkg/table"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	levels := []string{"Male", "Female"}
	female, _ := table.Categorical("Female", levels)
	male, _ := table.Categorical("Male", levels)

	tbl, err := table.FromRows(
		[]string{"Name", "Sex", "Smoker", "BMI"},
		[][]table.Value{
			{table.String("Alice"), female, table.Bool(false), table.Number(25)},
			{table.String("Bob"), male, table.Bool(true), table.Number(27.5)},
			{table.String("Carol"), female, table.Bool(true), table.Missing(table.KindNumeric)},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestSchema(t *testing.T) {
	schema, err := Schema(sample(t))
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}

	tests := []struct {
		name     string
		typ      arrow.DataType
		nullable bool
		kind     string
	}{
		{"Name", arrow.BinaryTypes.String, false, "string"},
		{"Sex", arrow.BinaryTypes.String, false, "categorical"},
		{"Smoker", arrow.FixedWidthTypes.Boolean, false, "bool"},
		{"BMI", arrow.PrimitiveTypes.Float64, true, "numeric"},
	}
	if schema.NumFields() != len(tests) {
		t.Fatalf("NumFields() = %d, want %d", schema.NumFields(), len(tests))
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := schema.Field(i)
			if f.Name != tt.name {
				t.Errorf("Name = %q, want %q", f.Name, tt.name)
			}
			if !arrow.TypeEqual(f.Type, tt.typ) {
				t.Errorf("Type = %s, want %s", f.Type, tt.typ)
			}
			if f.Nullable != tt.nullable {
				t.Errorf("Nullable = %v, want %v", f.Nullable, tt.nullable)
			}
			idx := f.Metadata.FindKey(MetaKind)
			if idx < 0 || f.Metadata.Values()[idx] != tt.kind {
				t.Errorf("kind metadata = %v, want %s", f.Metadata, tt.kind)
			}
		})
	}

	sex := schema.Field(1)
	idx := sex.Metadata.FindKey(MetaLevels)
	if idx < 0 || sex.Metadata.Values()[idx] != "Male"+levelSeparator+"Female" {
		t.Errorf("levels metadata = %v", sex.Metadata)
	}
}

func TestRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := Record(sample(t), mem)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 3 || rec.NumCols() != 4 {
		t.Fatalf("record is %dx%d, want 3x4", rec.NumRows(), rec.NumCols())
	}

	names := rec.Column(0).(*array.String)
	if names.Value(1) != "Bob" {
		t.Errorf("Name[1] = %q", names.Value(1))
	}
	bmi := rec.Column(3).(*array.Float64)
	if bmi.Value(1) != 27.5 {
		t.Errorf("BMI[1] = %v", bmi.Value(1))
	}
	if !bmi.IsNull(2) || bmi.NullN() != 1 {
		t.Errorf("BMI nulls = %d, want row 2 null", bmi.NullN())
	}
	smoker := rec.Column(2).(*array.Boolean)
	if !smoker.Value(1) || smoker.Value(0) {
		t.Errorf("Smoker = %v", smoker)
	}
}

func TestFromRecordRoundTrip(t *testing.T) {
	in := sample(t)
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := Record(in, mem)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Release()

	out, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord() error = %v", err)
	}
	if !in.Equal(out) {
		t.Errorf("round trip changed the table")
	}

	sex, _ := out.Column("Sex")
	if lvl, ok := sex.Value(0).Level(); !ok || lvl != 1 {
		t.Errorf("Sex[0] level = %d, %v; want 1", lvl, ok)
	}
}

func TestFromRecordUnsupportedType(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{{Name: "d", Type: arrow.FixedWidthTypes.Date32}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Date32Builder).Append(arrow.Date32(1))
	rec := b.NewRecord()
	defer rec.Release()

	_, err := FromRecord(rec)
	var typeErr *table.TypeError
	if !errors.As(err, &typeErr) || typeErr.Column != "d" {
		t.Errorf("FromRecord() error = %v, want TypeError on d", err)
	}
}

func TestIPCRoundTrip(t *testing.T) {
	in := sample(t)

	var buf bytes.Buffer
	if err := WriteIPC(&buf, in); err != nil {
		t.Fatalf("WriteIPC() error = %v", err)
	}
	out, err := ReadIPC(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadIPC() error = %v", err)
	}
	if !in.Equal(out) {
		t.Errorf("IPC round trip changed the table")
	}
}

func TestReadIPCGarbage(t *testing.T) {
	if _, err := ReadIPC(bytes.NewReader([]byte("not an arrow file"))); err == nil {
		t.Error("ReadIPC() expected an error")
	}
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteParquet(&buf, sample(t)); err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}
	data := buf.Bytes()
	if len(data) < 8 || string(data[:4]) != "PAR1" || string(data[len(data)-4:]) != "PAR1" {
		t.Errorf("output is not a parquet file (%d bytes)", len(data))
	}
}
