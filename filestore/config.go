package filestore

import (
	"errors"
	"io"
	"os"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/logger"
	"go.yaml.in/yaml/v3"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderSelectel Provider = "selectel"
	ProviderSwift    Provider = "swift"
	ProviderMinIO    Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderSelectel).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of an S3 server or the authentication URL
	// of a Swift cluster. For Selectel it optionally overrides the public
	// authentication endpoint.
	Endpoint string `yaml:"endpoint"`

	// AccessKey is the access key ID (S3) or the username (Selectel).
	AccessKey string `yaml:"access_key"`

	// SecretKey is the secret access key (S3) or the password (Selectel).
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for S3 connections.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends (AWS S3, Keystone auth).
	// Leave empty for MinIO and Selectel.
	Region string `yaml:"region"`

	// AuthVersion is the Swift auth protocol version (1, 2 or 3). Zero
	// reads it from the endpoint URL and falls back to 1.
	AuthVersion int `yaml:"auth_version"`

	// Log enables driver logging when set.
	Log *logger.Config `yaml:"log"`
}

// DefaultConfig returns a config for provider with the given credentials.
func DefaultConfig(provider Provider, endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  provider,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}

// LoadConfig reads a yaml config from r. Environment variables
// FILESTORE_ACCESS_KEY and FILESTORE_SECRET_KEY override the credentials.
//
//	provider: selectel
//	access_key: SEL_22302
//	secret_key: secret
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse filestore config", err)
	}
	if v := os.Getenv("FILESTORE_ACCESS_KEY"); v != "" {
		cfg.AccessKey = v
	}
	if v := os.Getenv("FILESTORE_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required fields.
func (c *Config) Validate() error {
	switch {
	case c.Provider == "":
		return errs.Invalid("provider is required")
	case (c.Provider == ProviderMinIO || c.Provider == ProviderSwift) && c.Endpoint == "":
		return errs.Invalid("endpoint is required for " + string(c.Provider))
	case c.AccessKey == "" || c.SecretKey == "":
		return errs.Invalid("credentials are required")
	}
	return nil
}
