// Package output provides implementations for output modules.
// Output modules write the result table of a pipeline to its destination.
package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/canectors/wrangle/internal/textio"
	"github.com/canectors/wrangle/pkg/table"
)

// Error types shared by output modules
var (
	ErrNilConfig   = errors.New("module configuration is nil")
	ErrMissingPath = errors.New("path is required in output configuration")
)

// DefaultPreviewRows is the number of rows shown by a dry-run preview.
const DefaultPreviewRows = 10

// Module represents an output module that writes a table to a destination.
type Module interface {
	// Send writes the table to the destination.
	// Returns the number of rows written and any error.
	Send(ctx context.Context, t *table.Table) (int, error)

	// Describe returns a short human-readable description of the destination.
	Describe() string

	// Close releases any resources held by the module.
	Close() error
}

// PreviewOptions controls dry-run preview generation.
type PreviewOptions struct {
	// Rows is the number of rows included in the preview, DefaultPreviewRows when 0
	Rows int
}

// Preview describes what an output module would write in dry-run mode.
type Preview struct {
	Destination string
	RowCount    int
	// Body is the beginning of the rendered output
	Body string
}

// PreviewableModule is implemented by output modules that can describe
// their output without writing it.
type PreviewableModule interface {
	Module
	Preview(t *table.Table, opts PreviewOptions) (*Preview, error)
}

// stringField reads an optional string setting.
func stringField(cfg map[string]interface{}, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' must be a string, got %T", key, raw)
	}
	return s, nil
}

// intField reads an optional non-negative integer setting. JSON numbers
// arrive as float64.
func intField(cfg map[string]interface{}, key string) (int, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return 0, nil
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("field '%s' must be an integer, got %v", key, v)
		}
		n = int(v)
	default:
		return 0, fmt.Errorf("field '%s' must be an integer, got %T", key, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("field '%s' cannot be negative", key)
	}
	return n, nil
}

// delimiterField reads an optional delimiter, inferring it from path when absent.
func delimiterField(cfg map[string]interface{}, path string, fallback rune) (rune, error) {
	s, err := stringField(cfg, "delimiter")
	if err != nil {
		return 0, err
	}
	d, err := textio.ParseDelimiter(s)
	if err != nil {
		return 0, err
	}
	if d != 0 {
		return d, nil
	}
	if path != "" {
		return textio.DelimiterFor(path), nil
	}
	return fallback, nil
}

// createFile creates path, making missing parent directories.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// textPreview renders the first rows of t as delimited text.
func textPreview(t *table.Table, delimiter rune, opts PreviewOptions) (string, error) {
	rows := opts.Rows
	if rows == 0 {
		rows = DefaultPreviewRows
	}
	return textio.ToText(t.Head(rows), delimiter)
}
