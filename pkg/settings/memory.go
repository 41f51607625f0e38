package settings

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// MemoryBackend is an in-memory settings backend. Used for tests and for
// running envwired without external storage.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Entry)}
}

// Seed inserts entries directly, bypassing path validation. Test helper and
// bootstrap convenience.
func (m *MemoryBackend) Seed(entries ...Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Path] = e
	}
}

// List returns entries under prefix in stable path order.
func (m *MemoryBackend) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Entry
	for path, e := range m.entries {
		if strings.HasPrefix(path, prefix) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// Get returns the raw value at path.
func (m *MemoryBackend) Get(_ context.Context, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[path]
	if !ok {
		return "", errors.Errorf("setting %q not found", path)
	}
	return e.Value, nil
}

// Set creates or replaces the value at path.
func (m *MemoryBackend) Set(_ context.Context, path, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[path]
	e.Path = path
	e.Value = value
	m.entries[path] = e
	return nil
}
