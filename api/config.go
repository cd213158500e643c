package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/logger"
	"go.yaml.in/yaml/v3"
)

// Environment variables that override values read from a config file.
const (
	EnvUsername = "SELCDN_USERNAME"
	EnvPassword = "SELCDN_PASSWORD"
	EnvAuthURL  = "SELCDN_AUTH_URL"
)

// Config holds everything needed to build a Client.
type Config struct {
	// Username and Password are the storage credentials.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// AuthURL overrides the authentication endpoint.
	AuthURL string `yaml:"auth_url"`

	// Timeout bounds every HTTP call. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// Log enables request logging when set.
	Log *logger.Config `yaml:"log"`
}

// DefaultConfig returns a config for the public Selectel endpoint.
func DefaultConfig(username, password string) *Config {
	return &Config{
		Username: username,
		Password: password,
		AuthURL:  AuthURL,
		Timeout:  60 * time.Second,
	}
}

// LoadConfig reads a yaml config from r on top of DefaultConfig and then
// applies the SELCDN_* environment overrides.
//
//	username: SEL_22302
//	password: secret
//	timeout: 30s
//	log:
//	  level: debug
//	  format: console
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig("", "")
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile is LoadConfig for a file on disk.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to open config", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// Validate reports missing required fields.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errs.Invalid("username is required")
	}
	if c.Password == "" {
		return errs.Invalid("password is required")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(EnvAuthURL); v != "" {
		c.AuthURL = v
	}
}

// NewFromConfig validates cfg and builds a Client from it. Extra options
// are applied after the config, so WithHTTPClient wins over Timeout.
func NewFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errs.Invalid("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithAuthURL(cfg.AuthURL),
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.Log != nil {
		base = append(base, WithLogger(logger.New(cfg.Log)))
	}

	return New(cfg.Username, cfg.Password, append(base, opts...)...), nil
}
