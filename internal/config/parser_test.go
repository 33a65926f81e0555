package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestParseJSONFile_ValidJSON(t *testing.T) {
	result := ParseJSONFile("testdata/valid-pipeline.json")

	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.Errors)
	}
	if result.Format != FormatJSON {
		t.Errorf("expected format json, got %s", result.Format)
	}
	if result.FilePath != "testdata/valid-pipeline.json" {
		t.Errorf("expected file path to be recorded, got %q", result.FilePath)
	}

	header, ok := result.Data["pipeline"].(map[string]interface{})
	if !ok {
		t.Fatal("expected 'pipeline' section in parsed data")
	}
	if header["name"] != "smokers" {
		t.Errorf("expected name 'smokers', got %v", header["name"])
	}
}

func TestParseJSONFile_InvalidJSON(t *testing.T) {
	path := writeFile(t, "broken.json", "{\n  \"pipeline\": {\"name\": \"x\"},\n  \"source\": \n}")

	result := ParseJSONFile(path)
	if result.IsValid() {
		t.Fatal("expected parse error for invalid JSON")
	}

	err := result.Errors[0]
	if err.Type != ErrorTypeSyntax {
		t.Errorf("expected syntax error, got %s", err.Type)
	}
	if err.Line != 4 {
		t.Errorf("expected error on line 4, got %d", err.Line)
	}
	if err.Path != path {
		t.Errorf("expected error path %q, got %q", path, err.Path)
	}
}

func TestParseJSONFile_NonExistentFile(t *testing.T) {
	result := ParseJSONFile(filepath.Join(t.TempDir(), "missing.json"))

	if result.IsValid() {
		t.Fatal("expected error for missing file")
	}
	if result.Errors[0].Type != ErrorTypeIO {
		t.Errorf("expected io error, got %s", result.Errors[0].Type)
	}
}

func TestParseJSONString(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  string
		wantData bool
	}{
		{"object", `{"pipeline": {"name": "x"}}`, "", true},
		{"empty", "   ", ErrorTypeSyntax, false},
		{"syntax", `{"pipeline": }`, ErrorTypeSyntax, false},
		{"array", `[1, 2]`, ErrorTypeFormat, false},
		{"null", `null`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseJSONString(tt.content)
			if tt.wantErr == "" {
				if !result.IsValid() {
					t.Fatalf("unexpected errors: %v", result.Errors)
				}
			} else if result.IsValid() || result.Errors[0].Type != tt.wantErr {
				t.Fatalf("expected %s error, got %v", tt.wantErr, result.Errors)
			}
			if (result.Data != nil) != tt.wantData {
				t.Errorf("data present = %v, want %v", result.Data != nil, tt.wantData)
			}
		})
	}
}

func TestParseYAMLFile_ValidYAML(t *testing.T) {
	result := ParseYAMLFile("testdata/valid-pipeline.yaml")

	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.Errors)
	}
	if result.Format != FormatYAML {
		t.Errorf("expected format yaml, got %s", result.Format)
	}

	stages, ok := result.Data["stages"].([]interface{})
	if !ok {
		t.Fatal("expected 'stages' list in parsed data")
	}
	if len(stages) != 6 {
		t.Errorf("expected 6 stages, got %d", len(stages))
	}

	where := stages[3].(map[string]interface{})["where"].(map[string]interface{})
	if where["op"] != "eq" {
		t.Errorf("expected flow mapping to be parsed, got %v", where)
	}
}

func TestParseYAMLFile_InvalidYAML(t *testing.T) {
	path := writeFile(t, "broken.yaml", "pipeline:\n  name: x\n source: [\n")

	result := ParseYAMLFile(path)
	if result.IsValid() {
		t.Fatal("expected parse error for invalid YAML")
	}
	if result.Errors[0].Type != ErrorTypeSyntax {
		t.Errorf("expected syntax error, got %s", result.Errors[0].Type)
	}
	if result.Errors[0].Line == 0 {
		t.Errorf("expected a line number in %v", result.Errors[0])
	}
}

func TestParseYAMLString(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  string
		wantData bool
	}{
		{"mapping", "pipeline:\n  name: x\n", "", true},
		{"empty", "", ErrorTypeSyntax, false},
		{"only comments", "# nothing here\n", "", false},
		{"null", "null\n", "", false},
		{"sequence", "- a\n- b\n", ErrorTypeFormat, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseYAMLString(tt.content)
			if tt.wantErr == "" {
				if !result.IsValid() {
					t.Fatalf("unexpected errors: %v", result.Errors)
				}
			} else if result.IsValid() || result.Errors[0].Type != tt.wantErr {
				t.Fatalf("expected %s error, got %v", tt.wantErr, result.Errors)
			}
			if (result.Data != nil) != tt.wantData {
				t.Errorf("data present = %v, want %v", result.Data != nil, tt.wantData)
			}
		})
	}
}

// YAML 1.2 keeps "Yes" a string, which matters for bool parser true tokens.
func TestParseYAMLString_YAML12BooleanValues(t *testing.T) {
	result := ParseYAMLString("trueValues: [Yes, yes, on]\nflag: true\n")
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	tokens := result.Data["trueValues"].([]interface{})
	for _, tok := range tokens {
		if _, ok := tok.(string); !ok {
			t.Errorf("expected %v to stay a string, got %T", tok, tok)
		}
	}
	if result.Data["flag"] != true {
		t.Errorf("expected flag to be bool true, got %v", result.Data["flag"])
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		wantValid      bool
		wantFormat     string
		wantParseErr   bool
		wantValidation bool
	}{
		{"yaml by extension", "testdata/valid-pipeline.yaml", true, FormatYAML, false, false},
		{"json by extension", "testdata/valid-pipeline.json", true, FormatJSON, false, false},
		{"missing source", "testdata/invalid-missing-source.json", false, FormatJSON, false, true},
		{"wrong type", "testdata/invalid-wrong-type.json", false, FormatJSON, false, true},
		{"bad stages", "testdata/invalid-stage.yaml", false, FormatYAML, false, true},
		{"missing file", "testdata/absent.yaml", false, FormatYAML, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseConfig(tt.path)
			if result.IsValid() != tt.wantValid {
				t.Fatalf("IsValid() = %v, want %v (errors: %v)", result.IsValid(), tt.wantValid, result.AllErrors())
			}
			if result.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", result.Format, tt.wantFormat)
			}
			if (len(result.ParseErrors) > 0) != tt.wantParseErr {
				t.Errorf("parse errors = %v", result.ParseErrors)
			}
			if (len(result.ValidationErrors) > 0) != tt.wantValidation {
				t.Errorf("validation errors = %v", result.ValidationErrors)
			}
		})
	}
}

func TestParseConfig_UnknownExtension(t *testing.T) {
	content, err := os.ReadFile("testdata/valid-pipeline.yaml")
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, "pipeline.conf", string(content))

	result := ParseConfig(path)
	if !result.IsValid() {
		t.Fatalf("expected content detection to succeed, got %v", result.AllErrors())
	}
	if result.Format != FormatYAML {
		t.Errorf("expected detected format yaml, got %s", result.Format)
	}
}

func TestParseConfigString(t *testing.T) {
	yamlDoc := "pipeline:\n  name: inline\nsource:\n  type: inline\n  columns: [a]\n  rows: [[\"1\"]]\nstages: []\n"
	jsonDoc := `{"pipeline": {"name": "inline"}, "source": {"path": "x.csv"}, "stages": []}`

	tests := []struct {
		name       string
		content    string
		format     string
		wantValid  bool
		wantFormat string
	}{
		{"explicit yaml", yamlDoc, FormatYAML, true, FormatYAML},
		{"explicit json", jsonDoc, FormatJSON, true, FormatJSON},
		{"detect json", jsonDoc, "", true, FormatJSON},
		{"detect yaml", yamlDoc, "", true, FormatYAML},
		{"unsupported", jsonDoc, "toml", false, "toml"},
		{"undetectable", "   ", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseConfigString(tt.content, tt.format)
			if result.IsValid() != tt.wantValid {
				t.Fatalf("IsValid() = %v, want %v (errors: %v)", result.IsValid(), tt.wantValid, result.AllErrors())
			}
			if result.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", result.Format, tt.wantFormat)
			}
		})
	}
}

func TestIsJSON(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{`{"a": 1}`, true},
		{"  \n[1]", true},
		{"a: 1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsJSON(tt.content); got != tt.want {
			t.Errorf("IsJSON(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestIsYAML(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"a: 1", true},
		{`{"a": 1}`, true},
		{"", false},
		{"# comment only", false},
		{"a: [", false},
	}
	for _, tt := range tests {
		if got := IsYAML(tt.content); got != tt.want {
			t.Errorf("IsYAML(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"pipeline.json", FormatJSON},
		{"pipeline.JSON", FormatJSON},
		{"dir/pipeline.yaml", FormatYAML},
		{"pipeline.yml", FormatYAML},
		{"pipeline.toml", ""},
		{"pipeline", ""},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResult_Errors(t *testing.T) {
	result := &Result{
		ParseErrors:      []ParseError{{Message: "parse failed"}},
		ValidationErrors: []ValidationError{{Path: "/source", Message: "missing path"}},
	}

	if result.IsValid() {
		t.Fatal("expected invalid result")
	}
	if got := len(result.AllErrors()); got != 2 {
		t.Errorf("AllErrors() returned %d errors, want 2", got)
	}

	err := result.Err()
	if err == nil {
		t.Fatal("Err() = nil, want joined error")
	}
	for _, want := range []string{"parse failed", "/source: missing path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Err() = %q, missing %q", err.Error(), want)
		}
	}

	if (&Result{}).Err() != nil {
		t.Error("Err() on a valid result should be nil")
	}
}

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  ParseError
		want string
	}{
		{"message only", ParseError{Message: "boom"}, "boom"},
		{"with path", ParseError{Path: "p.yaml", Message: "boom"}, "p.yaml: boom"},
		{"with line", ParseError{Path: "p.yaml", Line: 3, Message: "boom"}, "p.yaml:3: boom"},
		{"with column", ParseError{Path: "p.json", Line: 3, Column: 7, Message: "boom"}, "p.json:3:7: boom"},
		{"line without path", ParseError{Line: 3, Column: 7, Message: "boom"}, "line 3:7: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	if got := (ValidationError{Message: "bad"}).Error(); got != "bad" {
		t.Errorf("Error() = %q", got)
	}
	if got := (ValidationError{Path: "/stages/0", Message: "bad"}).Error(); got != "/stages/0: bad" {
		t.Errorf("Error() = %q", got)
	}
}
