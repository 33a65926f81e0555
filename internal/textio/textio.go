// Package textio reads and writes delimited text tables.
//
// The first line is the header and every following line is a row, split on
// the delimiter. There is no quoting: a cell is the exact text between two
// delimiters. Every cell is loaded as a string; typing a column is the job of
// a parse stage. Writing renders missing values as empty cells, numbers in
// their shortest exact decimal form and booleans as TRUE/FALSE, so a file
// with LF line endings loaded and written back unchanged is byte-identical.
package textio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/canectors/wrangle/pkg/table"
)

// Common delimiters.
const (
	Comma = ','
	Tab   = '\t'
)

// DelimiterFor picks the delimiter from a file extension: .tsv and .tab are
// tab separated, everything else is comma separated.
func DelimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return Tab
	default:
		return Comma
	}
}

// ParseDelimiter accepts a single character, or one of the names "tab",
// "comma", "semicolon" and "pipe". An empty string yields 0.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return Tab, nil
	case "comma":
		return Comma, nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r[0], nil
}

// Load reads the table stored at path. A zero delimiter is inferred from the
// file extension.
func Load(path string, delimiter rune) (*table.Table, error) {
	if delimiter == 0 {
		delimiter = DelimiterFor(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return t, nil
}

// Read parses a header line followed by data rows. Every row must have as
// many fields as the header; a mismatch is a SchemaError naming the line.
// Empty cells load as empty strings, not as missing values, and a blank line
// is a row of one empty cell. A trailing CR is dropped from every line.
func Read(r io.Reader, delimiter rune) (*table.Table, error) {
	lr := lineReader{r: bufio.NewReader(r), sep: string(delimiter)}

	header, ok, err := lr.next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &table.SchemaError{Line: 1, Message: "missing header line"}
	}

	var rows [][]table.Value
	for {
		record, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if len(record) != len(header) {
			return nil, &table.SchemaError{
				Line:    lr.line,
				Message: fmt.Sprintf("expected %d fields, found %d", len(header), len(record)),
			}
		}
		row := make([]table.Value, len(record))
		for i, cell := range record {
			row[i] = table.String(cell)
		}
		rows = append(rows, row)
	}

	t, err := table.FromRows(header, rows)
	if err != nil {
		var se *table.SchemaError
		if errors.As(err, &se) && se.Line == 0 {
			return nil, &table.SchemaError{Line: 1, Message: se.Message}
		}
		return nil, err
	}
	return t, nil
}

type lineReader struct {
	r    *bufio.Reader
	sep  string
	line int
}

// next returns the fields of the next line, or false at the end of input.
// The newline ending the last line is optional.
func (lr *lineReader) next() ([]string, bool, error) {
	text, err := lr.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	if text == "" {
		return nil, false, nil
	}
	lr.line++
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return strings.Split(text, lr.sep), true, nil
}

// Write serializes t with a header line. Lines end with LF. A cell holding
// the delimiter or a line break cannot be written back faithfully and is a
// SchemaError.
func Write(w io.Writer, t *table.Table, delimiter rune) error {
	bw := bufio.NewWriter(w)
	sep := string(delimiter)

	names := t.Names()
	if err := writeLine(bw, names, sep, 1, names); err != nil {
		return err
	}
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return err
		}
		cols[i] = col
	}
	record := make([]string, len(cols))
	for row := 0; row < t.Len(); row++ {
		for i, col := range cols {
			record[i] = col.Value(row).Text()
		}
		if err := writeLine(bw, record, sep, row+2, names); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeLine(bw *bufio.Writer, fields []string, sep string, line int, names []string) error {
	for i, field := range fields {
		if strings.Contains(field, sep) || strings.ContainsAny(field, "\r\n") {
			return &table.SchemaError{
				Line:    line,
				Message: fmt.Sprintf("column %s: cell %q contains the delimiter or a line break", names[i], field),
			}
		}
	}
	if _, err := bw.WriteString(strings.Join(fields, sep)); err != nil {
		return err
	}
	return bw.WriteByte('\n')
}

// ToText returns t serialized as delimited text.
func ToText(t *table.Table, delimiter rune) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t, delimiter); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Save writes t to path, replacing any existing file. A zero delimiter is
// inferred from the file extension.
func Save(path string, t *table.Table, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DelimiterFor(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, t, delimiter); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
