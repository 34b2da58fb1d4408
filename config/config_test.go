package config

import (
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Interpreter.Trace || cfg.Interpreter.StrictTypes {
		t.Error("expected tracing and strict types to be off by default")
	}
	if cfg.Output.Verbosity != "normal" {
		t.Errorf("expected default verbosity 'normal', got %q", cfg.Output.Verbosity)
	}
	if cfg.Output.Color != "auto" {
		t.Errorf("expected default color 'auto', got %q", cfg.Output.Color)
	}
	if !slices.Contains(cfg.Format.Extensions, ".hil") {
		t.Errorf("expected .hil in default extensions, got %v", cfg.Format.Extensions)
	}
	if !cfg.Format.FinalNewline {
		t.Error("expected final_newline to default to true")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestStringOrSlice(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected []string
	}{
		{"single string", "format:\n  extensions: .hilfe\n", []string{".hilfe"}},
		{"list", "format:\n  extensions: [.hil, .hilfe]\n", []string{".hil", ".hilfe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			if err := yaml.Unmarshal([]byte(tt.yaml), cfg); err != nil {
				t.Fatalf("Failed to parse config: %v", err)
			}
			if len(cfg.Format.Extensions) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, cfg.Format.Extensions)
			}
			for i, ext := range tt.expected {
				if cfg.Format.Extensions[i] != ext {
					t.Errorf("extensions[%d]: expected %q, got %q", i, ext, cfg.Format.Extensions[i])
				}
			}
		})
	}
}

func TestPartialYAMLKeepsDefaults(t *testing.T) {
	yamlData := `
interpreter:
  strict_types: true
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if !cfg.Interpreter.StrictTypes {
		t.Error("expected strict_types to be set")
	}
	if cfg.Output.Verbosity != "normal" {
		t.Errorf("expected verbosity default to survive, got %q", cfg.Output.Verbosity)
	}
	if cfg.Watch.DebounceMS != 100 {
		t.Errorf("expected debounce default to survive, got %d", cfg.Watch.DebounceMS)
	}
}
