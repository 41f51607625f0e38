package secrets

import (
	"os"

	"github.com/rs/zerolog/log"
)

// EnvProvider resolves references from environment variables. It is the
// implicit provider for references without a prefix.
type EnvProvider struct{}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Resolve returns the environment variable's value. Missing or empty
// variables resolve to the empty string rather than an error, keeping parity
// with os.Expand, but are logged so silent misconfiguration is visible.
func (e *EnvProvider) Resolve(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		log.Warn().Str("env_var", key).Msg("Environment variable not set or empty - using empty string")
	}
	return value, nil
}

// Name returns the provider name.
func (e *EnvProvider) Name() string {
	return "Environment"
}
