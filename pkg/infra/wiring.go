package infra

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/ushadow/envwire/pkg/catalog"
	"github.com/ushadow/envwire/pkg/envvar"
)

// WiringRegistry records which provider service config supplies each
// capability to each consumer. Wirings are validated against the catalog:
// the provider must declare the capability in Provides and the consumer in
// Requires.
type WiringRegistry struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog

	// consumer id -> capability -> provider id
	wirings map[string]map[string]string
}

// NewWiringRegistry creates an empty registry over the given catalog.
func NewWiringRegistry(c *catalog.Catalog) *WiringRegistry {
	return &WiringRegistry{catalog: c, wirings: make(map[string]map[string]string)}
}

// Wire links a capability provider to a consumer, replacing any previous
// wiring for that capability on that consumer.
func (w *WiringRegistry) Wire(consumerID, capability, providerID string) error {
	consumer, err := w.catalog.Template(consumerID)
	if err != nil {
		return err
	}
	provider, err := w.catalog.Template(providerID)
	if err != nil {
		return err
	}

	if !contains(consumer.Requires, capability) {
		return errors.Errorf("service %q does not require capability %q", consumerID, capability)
	}
	if !contains(provider.Provides, capability) {
		return errors.Errorf("service %q does not provide capability %q", providerID, capability)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wirings[consumerID] == nil {
		w.wirings[consumerID] = make(map[string]string)
	}
	if previous, exists := w.wirings[consumerID][capability]; exists && previous != providerID {
		log.Info().
			Str("consumer", consumerID).
			Str("capability", capability).
			Str("previous", previous).
			Str("provider", providerID).
			Msg("Replacing capability wiring")
	}
	w.wirings[consumerID][capability] = providerID
	return nil
}

// Unwire removes the wiring for a capability on a consumer, if any.
func (w *WiringRegistry) Unwire(consumerID, capability string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.wirings[consumerID], capability)
}

// Wirings returns the consumer's capability-to-provider map as a copy.
func (w *WiringRegistry) Wirings(consumerID string) map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result := make(map[string]string, len(w.wirings[consumerID]))
	for capability, providerID := range w.wirings[consumerID] {
		result[capability] = providerID
	}
	return result
}

// ProviderOverrides collects the env var overrides the consumer's wired
// providers contribute through their exports, attributed by provider name.
func (w *WiringRegistry) ProviderOverrides(consumerID string) (map[string]envvar.Override, error) {
	overrides := make(map[string]envvar.Override)
	for _, providerID := range w.Wirings(consumerID) {
		provider, err := w.catalog.Template(providerID)
		if err != nil {
			return nil, errors.Wrapf(err, "wired provider for %q disappeared from the catalog", consumerID)
		}
		for name, value := range provider.Exports {
			overrides[name] = envvar.Override{Value: value, ProviderName: provider.Name}
		}
	}
	return overrides, nil
}

func contains(values []string, wanted string) bool {
	for _, v := range values {
		if v == wanted {
			return true
		}
	}
	return false
}
