// Package template renders strings from table rows.
// It supports column substitution using {{Column}} syntax with optional
// default values: {{Column | default: "fallback"}}.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/canectors/wrangle/pkg/table"
)

// Template syntax constants
const (
	// TemplatePrefix is the opening delimiter for template variables
	TemplatePrefix = "{{"
	// TemplateSuffix is the closing delimiter for template variables
	TemplateSuffix = "}}"
)

// Errors returned by Compile.
var (
	ErrEmptyTemplate       = errors.New("template is empty")
	ErrMissingClosingBrace = errors.New("missing closing }}")
	ErrEmptyVariable       = errors.New("empty column name")
)

// templateVarRegex matches template variables like {{Name}} or {{Name | default: "value"}}
// Group 1: column name
// Group 2: optional default clause including quotes
// Group 3: the default value itself (may be empty)
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^|}]*?)(\s*\|\s*default:\s*"([^"]*)")?\s*\}\}`)

// Variable is one {{...}} placeholder of a template.
type Variable struct {
	Column       string
	DefaultValue string
	HasDefault   bool
}

// part is either a literal (variable < 0) or a reference to vars[variable].
type part struct {
	literal  string
	variable int
}

// Template is a compiled template. It is immutable and safe for concurrent use.
type Template struct {
	source string
	parts  []part
	vars   []Variable
}

// HasVariables checks if a string contains template variables.
func HasVariables(s string) bool {
	return strings.Contains(s, TemplatePrefix) && strings.Contains(s, TemplateSuffix)
}

// Compile parses source. An unterminated {{ or an empty {{ }} is an error.
func Compile(source string) (*Template, error) {
	if source == "" {
		return nil, ErrEmptyTemplate
	}
	t := &Template{source: source}

	last := 0
	for _, m := range templateVarRegex.FindAllStringSubmatchIndex(source, -1) {
		if err := t.addLiteral(source[last:m[0]]); err != nil {
			return nil, err
		}
		column := strings.TrimSpace(source[m[2]:m[3]])
		if column == "" {
			return nil, fmt.Errorf("at offset %d: %w", m[0], ErrEmptyVariable)
		}
		v := Variable{Column: column}
		if m[4] >= 0 {
			v.HasDefault = true
			v.DefaultValue = source[m[6]:m[7]]
		}
		t.parts = append(t.parts, part{variable: len(t.vars)})
		t.vars = append(t.vars, v)
		last = m[1]
	}
	if err := t.addLiteral(source[last:]); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) addLiteral(s string) error {
	if s == "" {
		return nil
	}
	if i := strings.Index(s, TemplatePrefix); i >= 0 {
		return fmt.Errorf("%w after %q", ErrMissingClosingBrace, s[:i])
	}
	t.parts = append(t.parts, part{literal: s, variable: -1})
	return nil
}

// String returns the template source.
func (t *Template) String() string { return t.source }

// Variables returns the placeholders in order of appearance.
func (t *Template) Variables() []Variable {
	out := make([]Variable, len(t.vars))
	copy(out, t.vars)
	return out
}

// Columns returns the distinct column names the template reads.
func (t *Template) Columns() []string {
	seen := make(map[string]bool, len(t.vars))
	var out []string
	for _, v := range t.vars {
		if !seen[v.Column] {
			seen[v.Column] = true
			out = append(out, v.Column)
		}
	}
	return out
}

// Render evaluates the template against r. Cells are rendered like a text
// file would store them. A missing cell uses the placeholder's default; without
// one, ok is false and the result is meaningless. An unknown column is an
// *table.UnknownColumnError.
func (t *Template) Render(r table.Row) (s string, ok bool, err error) {
	var sb strings.Builder
	ok = true
	for _, p := range t.parts {
		if p.variable < 0 {
			sb.WriteString(p.literal)
			continue
		}
		v := t.vars[p.variable]
		cell, err := r.Get(v.Column)
		if err != nil {
			return "", false, err
		}
		switch {
		case !cell.IsMissing():
			sb.WriteString(cell.Text())
		case v.HasDefault:
			sb.WriteString(v.DefaultValue)
		default:
			ok = false
		}
	}
	return sb.String(), ok, nil
}
