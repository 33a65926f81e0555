// Package config parses and validates pipeline definition files (JSON/YAML)
// and converts them into definition.Pipeline values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported definition formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// codec decodes one definition format.
type codec struct {
	unmarshal func([]byte, any) error
	// document names the expected top-level value in messages
	document string
	locate   func(err error, content string) ParseError
}

var codecs = map[string]codec{
	FormatJSON: {unmarshal: json.Unmarshal, document: "JSON object", locate: jsonErrorAt},
	FormatYAML: {unmarshal: yaml.Unmarshal, document: "YAML mapping", locate: yamlErrorAt},
}

func decode(format, content string) *ParseResult {
	result := &ParseResult{Format: format}
	c, ok := codecs[format]
	if !ok {
		result.Errors = append(result.Errors, ParseError{Message: fmt.Sprintf("unsupported format: %s", format), Type: ErrorTypeFormat})
		return result
	}
	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{Message: "empty content: expected " + c.document, Type: ErrorTypeSyntax})
		return result
	}

	var data any
	if err := c.unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, c.locate(err, content))
		return result
	}
	switch v := data.(type) {
	case nil:
		// null or comments only; validation reports the missing sections
	case map[string]any:
		result.Data = v
	default:
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid definition: expected %s, got %T", c.document, data),
			Type:    ErrorTypeFormat,
		})
	}
	return result
}

func decodeFile(format, filePath string) *ParseResult {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return &ParseResult{FilePath: filePath, Format: format, Errors: []ParseError{readError(filePath, err)}}
	}
	return stamp(decode(format, string(content)), filePath)
}

func readError(filePath string, err error) ParseError {
	return ParseError{Path: filePath, Message: fmt.Sprintf("failed to read file: %v", err), Type: ErrorTypeIO}
}

// stamp records filePath on the result and on errors that lack a path.
func stamp(result *ParseResult, filePath string) *ParseResult {
	result.FilePath = filePath
	for i := range result.Errors {
		if result.Errors[i].Path == "" {
			result.Errors[i].Path = filePath
		}
	}
	return result
}

// jsonErrorAt turns the byte offset of a JSON syntax error into a line and
// column.
func jsonErrorAt(err error, content string) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return pe
	}
	before := content[:min(int(syntaxErr.Offset), len(content))]
	pe.Line = strings.Count(before, "\n") + 1
	pe.Column = len(before) - strings.LastIndexByte(before, '\n')
	pe.Message = "JSON syntax error: " + syntaxErr.Error()
	return pe
}

// yamlErrorAt reads the line number out of yaml.v3's "yaml: line N: ..."
// messages.
func yamlErrorAt(err error, _ string) ParseError {
	pe := ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		pe.Message = "YAML type error: " + strings.Join(typeErr.Errors, "; ")
	}
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}

// ParseJSONFile decodes the JSON definition at filePath.
func ParseJSONFile(filePath string) *ParseResult { return decodeFile(FormatJSON, filePath) }

// ParseJSONString decodes a JSON definition.
func ParseJSONString(content string) *ParseResult { return decode(FormatJSON, content) }

// ParseYAMLFile decodes the YAML definition at filePath.
func ParseYAMLFile(filePath string) *ParseResult { return decodeFile(FormatYAML, filePath) }

// ParseYAMLString decodes a YAML definition.
func ParseYAMLString(content string) *ParseResult { return decode(FormatYAML, content) }

// ParseConfig parses and validates the definition at filePath. The format
// comes from the extension, or is sniffed from the content.
func ParseConfig(filePath string) *Result {
	result := &Result{FilePath: filePath}

	format := DetectFormat(filePath)
	if format != "" {
		return finish(result, decodeFile(format, filePath))
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		result.ParseErrors = []ParseError{readError(filePath, err)}
		return result
	}
	if format = sniff(string(content)); format == "" {
		result.ParseErrors = []ParseError{{
			Path:    filePath,
			Message: "unable to detect definition format: not valid JSON or YAML",
			Type:    ErrorTypeFormat,
		}}
		return result
	}
	return finish(result, stamp(decode(format, string(content)), filePath))
}

// ParseConfigString parses and validates definition content. An empty
// format is sniffed from the content.
func ParseConfigString(content string, format string) *Result {
	result := &Result{Format: format}
	if format == "" {
		if format = sniff(content); format == "" {
			result.ParseErrors = []ParseError{{
				Message: "unable to detect definition format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			}}
			return result
		}
	}
	return finish(result, decode(format, content))
}

func sniff(content string) string {
	switch {
	case IsJSON(content):
		return FormatJSON
	case IsYAML(content):
		return FormatYAML
	}
	return ""
}

func finish(result *Result, parsed *ParseResult) *Result {
	result.Data = parsed.Data
	result.ParseErrors = parsed.Errors
	result.Format = parsed.Format
	if parsed.IsValid() {
		result.ValidationErrors = ValidateConfig(parsed.Data)
	}
	return result
}

// DetectFormat maps a .json, .yaml or .yml extension to its format, and
// anything else to "".
func DetectFormat(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return ""
}

// IsJSON reports whether content looks like a JSON object or array.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML reports whether content decodes as a non-empty YAML document. JSON
// is YAML too.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data any
	return yaml.Unmarshal([]byte(content), &data) == nil && data != nil
}
