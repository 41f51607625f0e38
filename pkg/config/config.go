// Package config loads the envwired configuration file. The file has one
// fixed "server" section plus free-form sections for optional subsystems
// (settings backends, secret providers, the candidate cache); subsystems
// pull their sections with Get. YAML is the native format; TOML is accepted
// for the same shape by file extension.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ushadow/envwire/internal/expansion"
)

// Validatable is implemented by every configuration section.
type Validatable interface {
	Validate() error
}

// Settings backend selector values for ServerConfig.SettingsBackend.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ServerConfig holds the core server parameters.
type ServerConfig struct {
	// Address the HTTP API listens on. Default ":8089".
	Address string `yaml:"address"`

	// CatalogDir is the directory holding service template files.
	CatalogDir string `yaml:"catalog_dir"`

	// SettingsBackend selects the settings store: memory, mongo, redis, or
	// postgres. Default memory.
	SettingsBackend string `yaml:"settings_backend"`

	Debug bool `yaml:"debug"`
}

// Validate checks if the ServerConfig has all required fields set.
func (s ServerConfig) Validate() error {
	if s.CatalogDir == "" {
		return errors.New("catalog_dir must be set and non-empty")
	}
	switch s.SettingsBackend {
	case "", BackendMemory, BackendMongo, BackendRedis, BackendPostgres:
		return nil
	default:
		return errors.Errorf("unknown settings_backend %q", s.SettingsBackend)
	}
}

// Config is the parsed configuration file.
type Config struct {
	Server ServerConfig

	// Other holds the remaining top-level sections, decoded on demand by
	// Get.
	Other map[string]any
}

// ReadConfig reads and parses the configuration file, expands placeholders
// in the server section, and validates it.
func ReadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %q", file)
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, "failed to parse TOML config %q", file)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML config %q", file)
		}
	}

	cfg := &Config{Other: raw}
	if serverSection, ok := raw["server"]; ok {
		if err := decodeSection(serverSection, &cfg.Server); err != nil {
			return nil, errors.Wrap(err, "invalid server section")
		}
		delete(raw, "server")
	}

	if err := expansion.Expand(&cfg.Server, nil); err != nil {
		return nil, err
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8089"
	}
	if cfg.Server.SettingsBackend == "" {
		cfg.Server.SettingsBackend = BackendMemory
	}
	if err := cfg.Server.Validate(); err != nil {
		return nil, errors.Wrap(err, "server configuration is invalid")
	}
	return cfg, nil
}

// Get decodes the named section into T, expands its placeholders, and
// validates it. A missing section returns (nil, nil) so optional subsystems
// can be skipped.
func Get[T Validatable](cfg *Config, key string) (*T, error) {
	section, exists := cfg.Other[key]
	if !exists {
		return nil, nil
	}

	var partial T
	if err := decodeSection(section, &partial); err != nil {
		return nil, errors.Wrapf(err, "invalid %q section", key)
	}
	if err := expansion.Expand(&partial, nil); err != nil {
		return nil, err
	}
	if err := partial.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%q configuration is invalid", key)
	}
	return &partial, nil
}

// decodeSection re-marshals a loosely-typed section through YAML into a
// concrete struct. This keeps one set of field tags working for both input
// formats.
func decodeSection(section any, out any) error {
	data, err := yaml.Marshal(section)
	if err != nil {
		return errors.Wrap(err, "error marshalling section")
	}
	return yaml.Unmarshal(data, out)
}
