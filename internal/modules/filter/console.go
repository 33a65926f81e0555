package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/canectors/wrangle/internal/logger"
)

// MaxLogMessageLength is the maximum length of a single console message (8KB).
const MaxLogMessageLength = 8 * 1024

// jsConsole provides console.log/info/warn/error/debug for scripts and
// routes the output to the structured logger.
type jsConsole struct {
	label  string
	rowIdx int // -1 outside row evaluation
}

// newJSConsole creates a jsConsole and registers it in the runtime as "console".
func newJSConsole(runtime *goja.Runtime, label string) (*jsConsole, error) {
	c := &jsConsole{label: label, rowIdx: -1}

	console := runtime.NewObject()
	for name, level := range map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	} {
		fn := func(call goja.FunctionCall) goja.Value {
			c.logWithLevel(level, call.Arguments)
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return nil, fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := runtime.Set("console", console); err != nil {
		return nil, fmt.Errorf("runtime.Set(console): %w", err)
	}
	return c, nil
}

// SetRowIndex records the row being evaluated for log context.
func (c *jsConsole) SetRowIndex(idx int) { c.rowIdx = idx }

// ClearRowIndex clears the row index after evaluation.
func (c *jsConsole) ClearRowIndex() { c.rowIdx = -1 }

func (c *jsConsole) logWithLevel(level slog.Level, args []goja.Value) {
	message := formatArgs(args)
	if len(message) > MaxLogMessageLength {
		message = message[:MaxLogMessageLength-3] + "..."
	}

	attrs := []any{slog.String("source", "javascript")}
	if c.label != "" {
		attrs = append(attrs, slog.String("stage", c.label))
	}
	if c.rowIdx >= 0 {
		attrs = append(attrs, slog.Int("row_index", c.rowIdx))
	}

	switch level {
	case slog.LevelDebug:
		logger.Debug(message, attrs...)
	case slog.LevelWarn:
		logger.Warn(message, attrs...)
	case slog.LevelError:
		logger.Error(message, attrs...)
	default:
		logger.Info(message, attrs...)
	}
}

// formatArgs joins arguments with spaces, as console.log does.
// Objects and arrays are rendered as JSON.
func formatArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatValue(arg))
	}
	return strings.Join(parts, " ")
}

func formatValue(val goja.Value) string {
	switch {
	case val == nil || goja.IsUndefined(val):
		return "undefined"
	case goja.IsNull(val):
		return "null"
	}

	switch v := val.Export().(type) {
	case string:
		return v
	case bool, int64, float64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			// cyclic objects and functions cannot be marshaled
			return val.String()
		}
		return string(data)
	}
}
