package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileConfig holds configuration for the file-based provider.
type FileConfig struct {
	SecretsDir string `yaml:"secrets_dir"`
}

// Validate checks that the secrets directory exists and is a directory.
func (f FileConfig) Validate() error {
	if f.SecretsDir == "" {
		return errors.New("secrets_dir is required for the file provider")
	}
	info, err := os.Stat(f.SecretsDir)
	if os.IsNotExist(err) {
		return errors.Errorf("secrets_dir %q does not exist", f.SecretsDir)
	}
	if err != nil {
		return errors.Wrapf(err, "error accessing secrets_dir %q", f.SecretsDir)
	}
	if !info.IsDir() {
		return errors.Errorf("secrets_dir %q is not a directory", f.SecretsDir)
	}
	return nil
}

// CreateClient builds a FileProvider from this config.
func (f FileConfig) CreateClient() (*FileProvider, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return NewFileProvider(f.SecretsDir), nil
}

// FileProvider reads secrets from files in a configured directory, one
// secret per file. Covers Docker secrets, Kubernetes mounted secrets, and
// local development. File contents are trimmed of surrounding whitespace.
type FileProvider struct {
	secretsDir string
}

// NewFileProvider creates a file-based provider rooted at secretsDir.
func NewFileProvider(secretsDir string) *FileProvider {
	return &FileProvider{secretsDir: secretsDir}
}

// Resolve reads the secret file named by key. Keys must stay inside the
// secrets directory; absolute paths and traversal are rejected.
func (f *FileProvider) Resolve(key string) (string, error) {
	if f.secretsDir == "" {
		return "", errors.New("no secrets directory configured")
	}
	if key == "" {
		return "", errors.New("no file specified for file secret")
	}
	if filepath.IsAbs(key) {
		return "", errors.New("invalid secret key: absolute paths not allowed")
	}

	cleanKey := filepath.Clean(key)
	if strings.Contains(cleanKey, "..") {
		return "", errors.New("invalid secret key: path traversal detected")
	}

	absSecretsDir, err := filepath.Abs(f.secretsDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve secrets directory")
	}
	absFilePath, err := filepath.Abs(filepath.Join(f.secretsDir, cleanKey))
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve secret file path")
	}
	if !strings.HasPrefix(absFilePath, absSecretsDir+string(filepath.Separator)) {
		return "", errors.New("invalid secret key: outside secrets directory")
	}

	// #nosec G304 -- path traversal is prevented by the checks above
	content, err := os.ReadFile(absFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("secret not found")
		}
		return "", errors.New("failed to read secret")
	}

	log.Debug().Str("file", absFilePath).Msg("Retrieved secret from file")
	return strings.TrimSpace(string(content)), nil
}

// Name returns the provider name.
func (f *FileProvider) Name() string {
	return "File"
}
