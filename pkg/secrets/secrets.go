// Package secrets resolves secret references of the form "prefix:key"
// through pluggable providers. A stored setting or a config placeholder can
// say "vault:OPENAI_API_KEY", "file:db_password", "aws:prod/settings" or
// "env:PORT" and the material is fetched at the moment it is needed.
//
// References without a prefix resolve through the environment provider, so
// plain os.Expand-style usage keeps working.
package secrets

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Provider resolves keys within one secret source.
type Provider interface {
	// Resolve returns the secret value for the key.
	Resolve(key string) (string, error)

	// Name returns a human-readable provider name for logging.
	Name() string
}

// Registry maps reference prefixes to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry with the environment provider pre-wired
// under the "env" prefix.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register("env", NewEnvProvider())
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry. The binary registers its
// configured providers here during startup.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a provider under a prefix, replacing any previous one.
func (r *Registry) Register(prefix string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[prefix]; exists {
		log.Warn().Str("prefix", prefix).Msg("Secret provider prefix already registered, overriding")
	}
	log.Debug().Str("prefix", prefix).Str("provider", provider.Name()).Msg("Registered secret provider")
	r.providers[prefix] = provider
}

// Unregister removes the provider under a prefix.
func (r *Registry) Unregister(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, prefix)
}

// Prefixes lists the registered prefixes.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := make([]string, 0, len(r.providers))
	for prefix := range r.providers {
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}

// Resolve materializes a reference. "prefix:key" goes to the provider
// registered under prefix; a reference without a colon is an environment
// variable name. Only the first colon separates, so keys may contain colons.
func (r *Registry) Resolve(reference string) (string, error) {
	prefix, key := splitReference(reference)

	r.mu.RLock()
	provider, ok := r.providers[prefix]
	r.mu.RUnlock()
	if !ok {
		return "", errors.Errorf("no secret provider registered for prefix %q", prefix)
	}

	value, err := provider.Resolve(key)
	if err != nil {
		return "", errors.Wrapf(err, "provider %s failed to resolve %q", provider.Name(), key)
	}
	return value, nil
}

// IsReference reports whether a stored value is a secret reference this
// registry can materialize. Plain values, including ones that merely contain
// a colon (URLs), are not references unless their prefix is registered.
func (r *Registry) IsReference(value string) bool {
	prefix, key := splitReference(value)
	if key == value {
		// No colon: a bare value is data, not a reference.
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[prefix]
	return ok
}

func splitReference(reference string) (prefix, key string) {
	parts := strings.SplitN(reference, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "env", reference
}
