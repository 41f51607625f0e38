package expansion

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/ushadow/envwire/pkg/secrets"
)

type staticProvider struct {
	values map[string]string
}

func (s *staticProvider) Resolve(key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", errors.Errorf("no value for %q", key)
	}
	return value, nil
}

func (s *staticProvider) Name() string { return "Static" }

type nested struct {
	Token string
}

type sample struct {
	Address string
	Nested  nested
	Ptr     *nested
	Items   []string
	Lookup  map[string]string
	Port    int
}

func TestExpand(t *testing.T) {
	registry := secrets.NewRegistry()
	registry.Register("static", &staticProvider{values: map[string]string{
		"HOST":  "settings-db",
		"TOKEN": "tok-123",
	}})

	t.Run("expands strings at every nesting level", func(t *testing.T) {
		s := &sample{
			Address: "${static:HOST}:5432",
			Nested:  nested{Token: "${static:TOKEN}"},
			Ptr:     &nested{Token: "${static:TOKEN}"},
			Items:   []string{"${static:HOST}"},
			Lookup:  map[string]string{"token": "${static:TOKEN}"},
			Port:    8089,
		}
		if err := Expand(s, registry); err != nil {
			t.Fatalf("Expand() error = %v", err)
		}

		if s.Address != "settings-db:5432" {
			t.Errorf("Address = %q", s.Address)
		}
		if s.Nested.Token != "tok-123" || s.Ptr.Token != "tok-123" {
			t.Errorf("nested expansion failed: %+v", s)
		}
		if s.Items[0] != "settings-db" {
			t.Errorf("slice expansion failed: %q", s.Items[0])
		}
		if s.Lookup["token"] != "tok-123" {
			t.Errorf("map expansion failed: %q", s.Lookup["token"])
		}
		if s.Port != 8089 {
			t.Errorf("non-string field touched: %d", s.Port)
		}
	})

	t.Run("plain strings pass through", func(t *testing.T) {
		s := &sample{Address: "localhost:8089"}
		if err := Expand(s, registry); err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if s.Address != "localhost:8089" {
			t.Errorf("Address = %q", s.Address)
		}
	})

	t.Run("unresolvable placeholder fails", func(t *testing.T) {
		s := &sample{Address: "${static:MISSING}"}
		if err := Expand(s, registry); err == nil {
			t.Error("expected error for unresolvable placeholder")
		}
	})

	t.Run("nil input is a no-op", func(t *testing.T) {
		if err := Expand(nil, registry); err != nil {
			t.Errorf("Expand(nil) error = %v", err)
		}
		var s *sample
		if err := Expand(s, registry); err != nil {
			t.Errorf("Expand(nil pointer) error = %v", err)
		}
	})
}
