package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return file
}

func TestReadConfig(t *testing.T) {
	t.Run("reads YAML with defaults applied", func(t *testing.T) {
		file := writeConfig(t, "config.yaml", `
server:
  catalog_dir: /etc/envwire/catalog
`)
		cfg, err := ReadConfig(file)
		if err != nil {
			t.Fatalf("ReadConfig() error = %v", err)
		}
		if cfg.Server.Address != ":8089" {
			t.Errorf("default address not applied: %q", cfg.Server.Address)
		}
		if cfg.Server.SettingsBackend != BackendMemory {
			t.Errorf("default backend not applied: %q", cfg.Server.SettingsBackend)
		}
	})

	t.Run("reads TOML by extension", func(t *testing.T) {
		file := writeConfig(t, "config.toml", `
[server]
address = ":9000"
catalog_dir = "/etc/envwire/catalog"
settings_backend = "redis"
`)
		cfg, err := ReadConfig(file)
		if err != nil {
			t.Fatalf("ReadConfig() error = %v", err)
		}
		if cfg.Server.Address != ":9000" || cfg.Server.SettingsBackend != BackendRedis {
			t.Errorf("unexpected server config: %+v", cfg.Server)
		}
	})

	t.Run("expands environment placeholders", func(t *testing.T) {
		t.Setenv("ENVWIRE_CATALOG", "/srv/catalog")
		file := writeConfig(t, "config.yaml", `
server:
  catalog_dir: ${env:ENVWIRE_CATALOG}
`)
		cfg, err := ReadConfig(file)
		if err != nil {
			t.Fatalf("ReadConfig() error = %v", err)
		}
		if cfg.Server.CatalogDir != "/srv/catalog" {
			t.Errorf("placeholder not expanded: %q", cfg.Server.CatalogDir)
		}
	})

	t.Run("rejects missing catalog_dir", func(t *testing.T) {
		file := writeConfig(t, "config.yaml", `
server:
  address: ":8089"
`)
		if _, err := ReadConfig(file); err == nil {
			t.Error("expected validation error for missing catalog_dir")
		}
	})

	t.Run("rejects unknown settings backend", func(t *testing.T) {
		file := writeConfig(t, "config.yaml", `
server:
  catalog_dir: /etc/envwire/catalog
  settings_backend: etcd
`)
		if _, err := ReadConfig(file); err == nil {
			t.Error("expected validation error for unknown backend")
		}
	})

	t.Run("fails on unreadable file", func(t *testing.T) {
		if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

type cacheSection struct {
	Servers []string `yaml:"servers"`
	TTL     int      `yaml:"ttl"`
}

func (c cacheSection) Validate() error {
	if len(c.Servers) == 0 {
		return errors.New("servers must not be empty")
	}
	return nil
}

func TestGet(t *testing.T) {
	file := writeConfig(t, "config.yaml", `
server:
  catalog_dir: /etc/envwire/catalog
cache:
  servers: [memcached:11211]
  ttl: 30
broken:
  ttl: 30
`)
	cfg, err := ReadConfig(file)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	t.Run("decodes a present section", func(t *testing.T) {
		section, err := Get[cacheSection](cfg, "cache")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if section == nil || section.Servers[0] != "memcached:11211" || section.TTL != 30 {
			t.Errorf("unexpected section: %+v", section)
		}
	})

	t.Run("absent section returns nil without error", func(t *testing.T) {
		section, err := Get[cacheSection](cfg, "nope")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if section != nil {
			t.Errorf("expected nil for absent section, got %+v", section)
		}
	})

	t.Run("invalid section fails validation", func(t *testing.T) {
		if _, err := Get[cacheSection](cfg, "broken"); err == nil {
			t.Error("expected validation error")
		}
	})
}
