// Package settings implements the hierarchical settings store addressed by
// dotted paths (api_keys.openai_api_key, settings.debug_mode). It serves two
// distinct read shapes: candidate listings carrying masked display values
// only, and an explicit raw fetch for a single path. Raw values are never
// bundled into listings so secrets do not leak into callers that only need
// to render choices.
//
// Backends exist for memory, MongoDB, Redis, and Postgres; a Memcached
// read-through cache can wrap the candidate listing of any of them.
package settings

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/ushadow/envwire/pkg/envvar"
	"github.com/ushadow/envwire/pkg/secrets"
)

// Entry is one stored setting as a backend sees it. Value holds either the
// plain value or a secret reference like "vault:OPENAI_API_KEY".
type Entry struct {
	Path  string
	Label string
	Value string
}

// Backend is the persistence contract for settings. Implementations store
// raw entries; masking and reference resolution live in Service so they
// cannot drift between backends.
type Backend interface {
	// List returns all entries whose path starts with the given prefix.
	// An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Get returns the stored raw value at path. Missing paths are an error.
	Get(ctx context.Context, path string) (string, error)

	// Set persists a value at path, creating or replacing it.
	Set(ctx context.Context, path, value string) error
}

// Service is the settings store as the rest of the system consumes it.
type Service struct {
	backend Backend
	secrets *secrets.Registry
}

// NewService creates a settings service over a backend. The registry
// resolves secret references found in stored values; nil means the default
// registry.
func NewService(backend Backend, registry *secrets.Registry) *Service {
	if registry == nil {
		registry = secrets.Default()
	}
	return &Service{backend: backend, secrets: registry}
}

// Candidates lists the settings under a namespace as mapping candidates for
// the resolver. Values are masked display strings; the raw value is only
// reachable through Value.
func (s *Service) Candidates(ctx context.Context, namespace string) ([]envvar.Candidate, error) {
	prefix := namespace
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}

	entries, err := s.backend.List(ctx, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list settings under %q", namespace)
	}

	candidates := make([]envvar.Candidate, 0, len(entries))
	for _, e := range entries {
		c := envvar.Candidate{
			Path:     e.Path,
			Label:    e.Label,
			HasValue: e.Value != "",
		}
		if c.HasValue {
			c.Value = Mask(e.Value)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Value returns the raw value stored at path, materializing secret
// references through the registry. This is the one deliberate way to obtain
// an unmasked value; callers invoke it at the moment the value is needed.
func (s *Service) Value(ctx context.Context, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	raw, err := s.backend.Get(ctx, path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read setting %q", path)
	}

	if s.secrets.IsReference(raw) {
		resolved, err := s.secrets.Resolve(raw)
		if err != nil {
			return "", errors.Wrapf(err, "failed to materialize secret reference for %q", path)
		}
		return resolved, nil
	}
	return raw, nil
}

// Put persists a value at path. This is the consumer of the resolver's
// newSettingPath output.
func (s *Service) Put(ctx context.Context, path, value string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, path, value); err != nil {
		return errors.Wrapf(err, "failed to store setting %q", path)
	}
	log.Info().Str("path", path).Msg("Stored setting")
	return nil
}

// ValidatePath checks that a dotted settings path is well formed: at least
// two non-empty segments, no whitespace.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New("settings path must not be empty")
	}
	if strings.ContainsAny(path, " \t\n") {
		return errors.Errorf("settings path %q must not contain whitespace", path)
	}
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return errors.Errorf("settings path %q must be namespaced (e.g. api_keys.openai_api_key)", path)
	}
	for _, seg := range segments {
		if seg == "" {
			return errors.Errorf("settings path %q has an empty segment", path)
		}
	}
	return nil
}

const maskPrefixLen = 4

// Mask converts a raw value to its display form. Short values are fully
// hidden; longer ones keep a short identifying prefix.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 2*maskPrefixLen {
		return "••••"
	}
	return value[:maskPrefixLen] + "…"
}
