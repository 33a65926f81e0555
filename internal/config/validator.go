package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SchemaURL identifies the embedded pipeline definition schema.
const SchemaURL = "https://wrangle.dev/schemas/pipeline/v1/pipeline-schema.json"

//go:embed schema/pipeline-schema.json
var embeddedSchema []byte

// printer renders jsonschema messages.
var printer = message.NewPrinter(language.English)

// GetEmbeddedSchema returns the raw pipeline schema.
func GetEmbeddedSchema() []byte {
	return embeddedSchema
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(embeddedSchema, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(SchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	s, err := c.Compile(SchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return s, nil
})

// ValidateConfig checks a decoded definition against the embedded schema.
// It returns nil when the definition is valid; errors are ordered by path.
func ValidateConfig(data map[string]interface{}) []ValidationError {
	if len(data) == 0 {
		return []ValidationError{{Path: "/", Keyword: "required", Message: "pipeline definition is empty"}}
	}

	schema, err := compileSchema()
	if err != nil {
		return []ValidationError{{Path: "/", Keyword: "schema", Message: err.Error()}}
	}

	err = schema.Validate(data)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationError{{Path: "/", Keyword: "validation", Message: err.Error()}}
	}

	var out []ValidationError
	collectLeaves(verr, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// collectLeaves gathers the leaf causes of err: only they carry a precise
// location, inner nodes group them.
func collectLeaves(err *jsonschema.ValidationError, out *[]ValidationError) {
	if len(err.Causes) == 0 && err.ErrorKind != nil {
		*out = append(*out, ValidationError{
			Path:    "/" + strings.Join(err.InstanceLocation, "/"),
			Keyword: keywordOf(err),
			Message: err.ErrorKind.LocalizedString(printer),
		})
	}
	for _, cause := range err.Causes {
		collectLeaves(cause, out)
	}
}

func keywordOf(err *jsonschema.ValidationError) string {
	path := err.ErrorKind.KeywordPath()
	if len(path) == 0 {
		return "validation"
	}
	switch kw := path[len(path)-1]; kw {
	case "required", "type", "pattern", "enum", "additionalProperties":
		return kw
	case "const":
		return "enum"
	case "minimum", "maximum", "minLength", "maxLength", "minItems", "maxItems":
		return "range"
	}
	return "validation"
}
