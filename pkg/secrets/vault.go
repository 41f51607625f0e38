package secrets

import (
	"fmt"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// VaultConfig holds configuration for connecting to HashiCorp Vault.
type VaultConfig struct {
	Address   string `yaml:"address"`
	Token     string `yaml:"token"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace,omitempty"`
}

// Validate checks if the VaultConfig has all required fields set.
func (v VaultConfig) Validate() error {
	if v.Address == "" {
		return errors.New("vault address is required")
	}
	if v.Token == "" {
		return errors.New("vault token is required")
	}
	if v.Path == "" {
		return errors.New("vault path is required")
	}
	return nil
}

// CreateClient creates and configures a Vault API client from this config.
func (v VaultConfig) CreateClient() (*api.Client, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	cfg := api.DefaultConfig()
	cfg.Address = v.Address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}
	client.SetToken(v.Token)
	if v.Namespace != "" {
		client.SetNamespace(v.Namespace)
	}
	return client, nil
}

// VaultProvider retrieves secrets from HashiCorp Vault. Both KV v1 and KV v2
// secret engines are supported; the mount path is fixed when the provider is
// created and keys select fields within that secret.
//
// Example stored settings value or config placeholder:
//
//	api_keys.openai_api_key = "vault:OPENAI_API_KEY"
type VaultProvider struct {
	logical *api.Logical
	path    string
}

// NewVaultProvider creates a Vault-backed provider reading from path.
func NewVaultProvider(client *api.Client, path string) *VaultProvider {
	return &VaultProvider{logical: client.Logical(), path: path}
}

// Resolve retrieves the named field from the configured Vault path.
func (v *VaultProvider) Resolve(key string) (string, error) {
	secret, err := v.logical.Read(v.path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from Vault path %q", v.path)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.Errorf("no secret found at Vault path %q", v.path)
	}

	// KV v2 nests the fields under "data"; KV v1 stores them flat.
	data := secret.Data
	if nested, present := secret.Data["data"]; present {
		dataMap, ok := nested.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("unexpected data format in KV v2 secret")
		}
		data = dataMap
	}

	if value, ok := data[key].(string); ok {
		log.Debug().
			Str("secret_name", key).
			Str("vault_path", v.path).
			Msg("Retrieved secret from Vault")
		return value, nil
	}
	return "", errors.Errorf("secret %q not found in Vault at path %q", key, v.path)
}

// Name returns the provider name.
func (v *VaultProvider) Name() string {
	return "Vault"
}
