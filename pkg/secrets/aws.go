package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AWSConfig holds configuration for AWS Secrets Manager.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SecretName      string `yaml:"secret_name"`
	Endpoint        string `yaml:"endpoint,omitempty"` // for LocalStack or custom endpoints
}

// Validate checks if the AWSConfig has all required fields set. Credentials
// are optional; the default credential chain (IAM role, env vars) applies
// when they are absent.
func (a AWSConfig) Validate() error {
	if a.Region == "" {
		return errors.New("AWS region is required")
	}
	if a.SecretName == "" {
		return errors.New("AWS secret name is required")
	}
	return nil
}

// CreateClient creates and configures an AWS Secrets Manager client from
// this config.
func (a AWSConfig) CreateClient() (*secretsmanager.Client, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(a.Region),
	}
	if a.Endpoint != "" {
		configOpts = append(configOpts, config.WithBaseEndpoint(a.Endpoint))
	}
	if a.AccessKeyID != "" && a.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKeyID, a.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// AWSProvider retrieves secrets from AWS Secrets Manager. The secret value
// may be a plain string or a JSON object holding multiple key/value pairs;
// in the JSON case the reference key selects one field.
type AWSProvider struct {
	client     *secretsmanager.Client
	secretName string
}

// NewAWSProvider creates an AWS Secrets Manager-backed provider reading the
// named secret.
func NewAWSProvider(client *secretsmanager.Client, secretName string) *AWSProvider {
	return &AWSProvider{client: client, secretName: secretName}
}

// Resolve retrieves the secret and extracts the requested key.
func (a *AWSProvider) Resolve(key string) (string, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName),
	}
	result, err := a.client.GetSecretValue(context.Background(), input)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from AWS Secrets Manager: %q", a.secretName)
	}
	if result.SecretString == nil {
		return "", errors.Errorf("secret %q has no string value", a.secretName)
	}
	secretString := *result.SecretString

	// JSON objects hold multiple key/value pairs; plain strings are the
	// whole secret regardless of key.
	var secretData map[string]interface{}
	if err := json.Unmarshal([]byte(secretString), &secretData); err == nil {
		if value, ok := secretData[key].(string); ok {
			log.Debug().
				Str("secret_name", a.secretName).
				Str("key", key).
				Msg("Retrieved secret from AWS Secrets Manager")
			return value, nil
		}
		return "", errors.Errorf("key %q not found in AWS secret %q", key, a.secretName)
	}

	log.Debug().Str("secret_name", a.secretName).Msg("Retrieved plain secret from AWS Secrets Manager")
	return secretString, nil
}

// Name returns the provider name.
func (a *AWSProvider) Name() string {
	return "AWS Secrets Manager"
}
