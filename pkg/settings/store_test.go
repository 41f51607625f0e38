package settings

import (
	"context"
	"testing"

	"github.com/ushadow/envwire/pkg/secrets"
)

func newTestService(entries ...Entry) (*Service, *MemoryBackend) {
	backend := NewMemoryBackend()
	backend.Seed(entries...)
	return NewService(backend, secrets.NewRegistry()), backend
}

func TestServiceCandidates(t *testing.T) {
	ctx := context.Background()

	t.Run("masks populated values", func(t *testing.T) {
		service, _ := newTestService(
			Entry{Path: "api_keys.openai_api_key", Label: "OpenAI API Key", Value: "sk-verysecretvalue"},
			Entry{Path: "api_keys.short", Value: "tiny"},
		)

		candidates, err := service.Candidates(ctx, "api_keys")
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if len(candidates) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(candidates))
		}

		long := candidates[0]
		if long.Value != "sk-v…" {
			t.Errorf("expected masked prefix display, got %q", long.Value)
		}
		if !long.HasValue {
			t.Error("expected HasValue for populated setting")
		}

		short := candidates[1]
		if short.Value != "••••" {
			t.Errorf("short values must be fully hidden, got %q", short.Value)
		}
	})

	t.Run("namespace filters by dotted prefix", func(t *testing.T) {
		service, _ := newTestService(
			Entry{Path: "api_keys.openai_api_key", Value: "sk-x"},
			Entry{Path: "settings.debug_mode", Value: "true"},
		)

		candidates, err := service.Candidates(ctx, "settings")
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if len(candidates) != 1 || candidates[0].Path != "settings.debug_mode" {
			t.Errorf("unexpected candidates: %v", candidates)
		}
	})

	t.Run("empty settings flagged without value", func(t *testing.T) {
		service, _ := newTestService(Entry{Path: "api_keys.pending_key"})

		candidates, err := service.Candidates(ctx, "api_keys")
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if len(candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(candidates))
		}
		if candidates[0].HasValue || candidates[0].Value != "" {
			t.Errorf("empty setting must not carry a value: %+v", candidates[0])
		}
	})
}

func TestServiceValue(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the raw plain value", func(t *testing.T) {
		service, _ := newTestService(Entry{Path: "api_keys.openai_api_key", Value: "sk-raw"})
		got, err := service.Value(ctx, "api_keys.openai_api_key")
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if got != "sk-raw" {
			t.Errorf("expected raw value, got %q", got)
		}
	})

	t.Run("materializes secret references", func(t *testing.T) {
		t.Setenv("ENVWIRE_STORE_TEST_SECRET", "resolved-secret")
		service, _ := newTestService(Entry{Path: "api_keys.ref_key", Value: "env:ENVWIRE_STORE_TEST_SECRET"})

		got, err := service.Value(ctx, "api_keys.ref_key")
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if got != "resolved-secret" {
			t.Errorf("expected reference to resolve, got %q", got)
		}
	})

	t.Run("missing path fails", func(t *testing.T) {
		service, _ := newTestService()
		if _, err := service.Value(ctx, "api_keys.missing"); err == nil {
			t.Error("expected error for missing setting")
		}
	})

	t.Run("malformed path fails before hitting the backend", func(t *testing.T) {
		service, _ := newTestService()
		if _, err := service.Value(ctx, "not-namespaced"); err == nil {
			t.Error("expected error for non-namespaced path")
		}
	})
}

func TestServicePut(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and round-trips", func(t *testing.T) {
		service, _ := newTestService()
		if err := service.Put(ctx, "settings.debug_mode", "true"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, err := service.Value(ctx, "settings.debug_mode")
		if err != nil {
			t.Fatalf("Value() after Put error = %v", err)
		}
		if got != "true" {
			t.Errorf("expected stored value, got %q", got)
		}
	})

	t.Run("rejects malformed paths", func(t *testing.T) {
		service, _ := newTestService()
		for _, path := range []string{"", "noseparator", "bad..segment", "has space.key"} {
			if err := service.Put(ctx, path, "v"); err == nil {
				t.Errorf("expected Put(%q) to fail", path)
			}
		}
	})
}

func TestMask(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"", ""},
		{"short", "••••"},
		{"12345678", "••••"},
		{"123456789", "1234…"},
		{"sk-proj-abcdef123456", "sk-p…"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := Mask(tt.value); got != tt.expected {
				t.Errorf("Mask(%q) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	for _, valid := range []string{"api_keys.openai_api_key", "settings.debug_mode", "a.b.c"} {
		if err := ValidatePath(valid); err != nil {
			t.Errorf("ValidatePath(%q) unexpectedly failed: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "single", ".leading", "trailing.", "mid..dle", "with space.x"} {
		if err := ValidatePath(invalid); err == nil {
			t.Errorf("ValidatePath(%q) unexpectedly passed", invalid)
		}
	}
}
