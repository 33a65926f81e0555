package filter

import (
	"errors"
	"testing"

	"github.com/canectors/wrangle/internal/template"
	"github.com/canectors/wrangle/pkg/table"
)

func TestFormatStage(t *testing.T) {
	stage, err := NewFormatFromConfig(FormatConfig{
		Target:   "Label",
		Template: `{{Name}} ({{Sex}}, {{Height | default: "?"}} cm)`,
	})
	if err != nil {
		t.Fatalf("NewFormatFromConfig() error = %v", err)
	}
	if want := `derive Label = {{Name}} ({{Sex}}, {{Height | default: "?"}} cm)`; stage.Name() != want {
		t.Errorf("Name() = %q, want %q", stage.Name(), want)
	}

	out, err := stage.Apply(patients(t))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []string{
		"Alice (Female, 160 cm)",
		"Bob (Male, 180 cm)",
		"Carol (Female, ? cm)",
		"Dan (Male, 175 cm)",
	}
	if got := columnText(t, out, "Label"); !equalStrings(got, want) {
		t.Errorf("Label = %v, want %v", got, want)
	}
}

func TestFormatStage_MissingWithoutDefault(t *testing.T) {
	stage, err := NewFormatFromConfig(FormatConfig{Target: "H", Template: "{{Height}}cm"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := stage.Apply(patients(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := columnText(t, out, "H"); got[2] != table.MissingText {
		t.Errorf("H = %v, want Carol's value missing", got)
	}
}

func TestFormatStage_Errors(t *testing.T) {
	if _, err := ParseFormatConfig(map[string]interface{}{"target": "x"}); err == nil {
		t.Error("expected an error without 'template'")
	}
	if _, err := NewFormatFromConfig(FormatConfig{Target: "x", Template: "{{Name"}); !errors.Is(err, template.ErrMissingClosingBrace) {
		t.Errorf("error = %v, want ErrMissingClosingBrace", err)
	}

	stage, _ := NewFormatFromConfig(FormatConfig{Target: "x", Template: "{{Age}}"})
	var unknown *table.UnknownColumnError
	if _, err := stage.Apply(patients(t)); !errors.As(err, &unknown) {
		t.Errorf("error = %v, want UnknownColumnError", err)
	}
}
