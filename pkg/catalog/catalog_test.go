package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ushadow/envwire/pkg/envvar"
)

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write template file: %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	t.Run("loads and indexes templates", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "ollama.yaml", `
id: ollama
name: Ollama
provides: [llm]
env:
  - name: OLLAMA_HOST
    required: true
  - name: OLLAMA_MODELS
    has_default: true
    default_value: llama3
exports:
  OLLAMA_BASE_URL: http://ollama:11434
`)
		writeTemplate(t, dir, "whisper.yaml", `
id: whisper
name: Whisper ASR
provides: [transcription]
requires: [llm]
env:
  - name: WHISPER_MODEL
    required: true
    resolved_source: setting
    setting_path: settings.whisper_model
`)
		writeTemplate(t, dir, "notes.txt", "not a template")

		c, err := LoadDir(dir)
		if err != nil {
			t.Fatalf("LoadDir() error = %v", err)
		}

		templates := c.Templates()
		if len(templates) != 2 {
			t.Fatalf("expected 2 templates, got %d", len(templates))
		}
		if templates[0].ID != "ollama" || templates[1].ID != "whisper" {
			t.Errorf("unexpected id order: %v, %v", templates[0].ID, templates[1].ID)
		}

		whisper, err := c.Template("whisper")
		if err != nil {
			t.Fatalf("Template() error = %v", err)
		}
		if whisper.Env[0].ResolvedSource != envvar.SourceSetting {
			t.Errorf("expected backend resolution to survive loading, got %q", whisper.Env[0].ResolvedSource)
		}
	})

	t.Run("lookups return independent copies", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "svc.yaml", `
id: svc
name: Service
env:
  - name: SVC_TOKEN
    required: true
`)
		c, err := LoadDir(dir)
		if err != nil {
			t.Fatalf("LoadDir() error = %v", err)
		}

		first, _ := c.Template("svc")
		first.Env[0].Name = "MUTATED"
		second, _ := c.Template("svc")
		if second.Env[0].Name != "SVC_TOKEN" {
			t.Error("catalog state leaked through a lookup")
		}
	})

	t.Run("unknown service fails", func(t *testing.T) {
		dir := t.TempDir()
		c, err := LoadDir(dir)
		if err != nil {
			t.Fatalf("LoadDir() error = %v", err)
		}
		if _, err := c.Template("ghost"); err == nil {
			t.Error("expected error for unknown service")
		}
	})

	t.Run("duplicate ids fail", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "a.yaml", "id: dup\nname: A\nenv: []\n")
		writeTemplate(t, dir, "b.yaml", "id: dup\nname: B\nenv: []\n")
		if _, err := LoadDir(dir); err == nil {
			t.Error("expected error for duplicate template ids")
		}
	})

	t.Run("providers of a capability", func(t *testing.T) {
		dir := t.TempDir()
		writeTemplate(t, dir, "a.yaml", "id: vllm\nname: vLLM\nprovides: [llm]\nenv: []\n")
		writeTemplate(t, dir, "b.yaml", "id: mem0\nname: Mem0\nprovides: [memory]\nenv: []\n")
		c, err := LoadDir(dir)
		if err != nil {
			t.Fatalf("LoadDir() error = %v", err)
		}
		providers := c.ProvidersOf(CapabilityLLM)
		if len(providers) != 1 || providers[0].ID != "vllm" {
			t.Errorf("unexpected providers: %v", providers)
		}
	})
}

func TestTemplateValidate(t *testing.T) {
	valid := Template{
		ID:   "svc",
		Name: "Service",
		Env: []envvar.Spec{
			{Name: "SVC_API_KEY", Required: true},
			{Name: "SVC_MODE", HasDefault: true, DefaultValue: "auto"},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	tests := []struct {
		name     string
		template Template
	}{
		{"missing id", Template{Name: "X"}},
		{"missing name", Template{ID: "x"}},
		{"lowercase env name", Template{ID: "x", Name: "X", Env: []envvar.Spec{{Name: "lower_case"}}}},
		{"duplicate env name", Template{ID: "x", Name: "X", Env: []envvar.Spec{{Name: "DUP"}, {Name: "DUP"}}}},
		{"default without flag", Template{ID: "x", Name: "X", Env: []envvar.Spec{{Name: "VAR", DefaultValue: "v"}}}},
		{"setting resolution without path", Template{ID: "x", Name: "X", Env: []envvar.Spec{{Name: "VAR", ResolvedSource: envvar.SourceSetting}}}},
		{"path without setting resolution", Template{ID: "x", Name: "X", Env: []envvar.Spec{{Name: "VAR", SettingPath: "settings.var"}}}},
		{"unknown resolution source", Template{ID: "x", Name: "X", Env: []envvar.Spec{{Name: "VAR", ResolvedSource: "weird"}}}},
		{"invalid capability", Template{ID: "x", Name: "X", Provides: []string{"LLM"}}},
		{"invalid export name", Template{ID: "x", Name: "X", Exports: map[string]string{"bad-name": "v"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.template.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
