package filter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/pkg/table"
)

// Error codes for script derive stages
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingDerive        = "MISSING_DERIVE"
	ErrCodeNotFunction          = "NOT_FUNCTION"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB).
const MaxScriptLength = 100 * 1024

// DeriveFunctionName is the function a script must define.
const DeriveFunctionName = "derive"

var (
	// ErrScriptEmpty is returned when the script is empty or whitespace-only
	ErrScriptEmpty = fmt.Errorf("script cannot be empty")
	// ErrScriptTooLong is returned when the script exceeds MaxScriptLength
	ErrScriptTooLong = fmt.Errorf("script exceeds maximum length")
	// ErrMissingDeriveFunc is returned when the script doesn't define derive
	ErrMissingDeriveFunc = fmt.Errorf("derive function not found in script")
	// ErrDeriveNotFunction is returned when derive is defined but is not a function
	ErrDeriveNotFunction = fmt.Errorf("derive is not a function")
)

// ScriptConfig holds the source of a JavaScript derive function.
// Either Script or ScriptFile must be provided (but not both).
type ScriptConfig struct {
	// Script is inline JavaScript source defining derive(row)
	Script string `json:"script,omitempty"`
	// ScriptFile is the path to a JavaScript file defining derive(row)
	ScriptFile string `json:"scriptFile,omitempty"`
}

// IsSet reports whether a script source is configured.
func (c ScriptConfig) IsSet() bool {
	return c.Script != "" || c.ScriptFile != ""
}

// ScriptError carries structured context for script failures.
type ScriptError struct {
	Code string
	// RowIndex is the failing row, -1 outside row evaluation.
	RowIndex   int
	Message    string
	StackTrace string
	Err        error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error { return e.Err }

func newScriptError(code, message string, rowIdx int, err error) *ScriptError {
	return &ScriptError{Code: code, RowIndex: rowIdx, Message: message, Err: err}
}

// ScriptFunc calls a JavaScript derive(row) function on table rows.
//
// Thread Safety:
//   - Goja runtime instances are NOT goroutine-safe
//   - Each ScriptFunc owns one runtime and serializes calls with a mutex
type ScriptFunc struct {
	mu       sync.Mutex
	runtime  *goja.Runtime
	deriveFn goja.Callable
	console  *jsConsole
}

// NewScriptFunc compiles the configured script and looks up derive.
// Rows are passed as plain objects keyed by column name, with null for
// missing cells. label identifies the script in console output.
func NewScriptFunc(config ScriptConfig, label string) (*ScriptFunc, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if err := validateScript(source); err != nil {
		return nil, err
	}

	vm := goja.New()
	console, err := newJSConsole(vm, label)
	if err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("failed to install console: %v", err), -1, err)
	}

	if _, err := vm.RunString(source); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, err)
	}

	deriveFn, err := getDeriveFunction(vm)
	if err != nil {
		return nil, err
	}

	logger.Debug("script initialized",
		slog.String("label", label),
		slog.Int("script_length", len(source)),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptFunc{runtime: vm, deriveFn: deriveFn, console: console}, nil
}

// resolveScriptSource returns the script source, either inline or from file.
func resolveScriptSource(config ScriptConfig) (string, error) {
	switch {
	case config.Script != "" && config.ScriptFile != "":
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", -1, nil)
	case config.Script != "":
		return config.Script, nil
	case config.ScriptFile != "":
		return readScriptFile(config.ScriptFile)
	default:
		return "", newScriptError(ErrCodeScriptEmpty, "either 'script' or 'scriptFile' must be provided", -1, ErrScriptEmpty)
	}
}

// readScriptFile reads at most MaxScriptLength+1 bytes so oversized files
// are rejected without loading them whole.
func readScriptFile(path string) (string, error) {
	if strings.Contains(path, "\x00") {
		return "", newScriptError(ErrCodeInvalidScriptFile, "scriptFile path contains invalid characters", -1, nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", path, err), -1, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", path),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", path, err), -1, err)
	}
	if len(content) > MaxScriptLength {
		return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q is larger than %d bytes", path, MaxScriptLength), -1, ErrScriptTooLong)
	}
	return string(content), nil
}

// validateScript validates the script is non-empty and within length limits.
func validateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return newScriptError(ErrCodeScriptEmpty, "script cannot be empty", -1, ErrScriptEmpty)
	}
	if len(script) > MaxScriptLength {
		return newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(script), MaxScriptLength), -1, ErrScriptTooLong)
	}
	return nil
}

// getDeriveFunction retrieves and validates the derive function from the runtime.
func getDeriveFunction(vm *goja.Runtime) (goja.Callable, error) {
	val := vm.Get(DeriveFunctionName)
	if val == nil || goja.IsUndefined(val) {
		return nil, newScriptError(ErrCodeMissingDerive, "derive function not found in script", -1, ErrMissingDeriveFunc)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, newScriptError(ErrCodeNotFunction, "derive is not a function", -1, ErrDeriveNotFunction)
	}
	return fn, nil
}

// ParseScriptConfig parses the script fields of a derive stage configuration.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	config := ScriptConfig{}

	script, err := optionalString(cfg, "script")
	if err != nil {
		return config, err
	}
	scriptFile, err := optionalString(cfg, "scriptFile")
	if err != nil {
		return config, err
	}
	if script != "" && scriptFile != "" {
		return config, fmt.Errorf("cannot specify both 'script' and 'scriptFile' - use only one")
	}

	config.Script = script
	config.ScriptFile = scriptFile
	return config, nil
}

// Call runs derive on one row. null or undefined results are missing; numbers,
// strings and booleans become values of the matching kind.
func (s *ScriptFunc) Call(r table.Row) (table.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.console.SetRowIndex(r.Index())
	defer s.console.ClearRowIndex()

	result, err := s.deriveFn(goja.Undefined(), s.runtime.ToValue(r.Env()))
	if err != nil {
		return table.Value{}, handleJSError(err, r.Index())
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return table.Missing(table.KindNumeric), nil
	}

	v, err := table.FromAny(result.Export())
	if err != nil {
		return table.Value{}, newScriptError(ErrCodeExecutionFailed,
			fmt.Sprintf("script at row %d returned %s - derive must return a number, string or boolean", r.Index(), result.ExportType()),
			r.Index(), err)
	}
	return v, nil
}

// handleJSError converts a JavaScript error to a ScriptError with context.
func handleJSError(err error, rowIdx int) error {
	if jsErr, ok := err.(*goja.Exception); ok {
		scriptErr := newScriptError(ErrCodeExecutionFailed,
			fmt.Sprintf("script execution failed at row %d: %v", rowIdx, jsErr.Value()), rowIdx, err)
		if obj, isObj := jsErr.Value().(*goja.Object); isObj {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				scriptErr.StackTrace = stack.String()
			}
		}
		return scriptErr
	}
	return newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script execution failed at row %d: %v", rowIdx, err), rowIdx, err)
}
