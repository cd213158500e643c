package api

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/internal/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
username: SEL_22302
password: secret
timeout: 30s
log:
  level: debug
  format: console
`))
	require.NoError(t, err)

	assert.Equal(t, "SEL_22302", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, AuthURL, cfg.AuthURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	require.NotNil(t, cfg.Log)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvUsername, "env-user")
	t.Setenv(EnvPassword, "env-pass")
	t.Setenv(EnvAuthURL, "http://localhost/auth")

	cfg, err := LoadConfig(strings.NewReader("username: file-user\n"))
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.Username)
	assert.Equal(t, "env-pass", cfg.Password)
	assert.Equal(t, "http://localhost/auth", cfg.AuthURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing password", "username: u\n"},
		{"broken yaml", "username: [u\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selcdn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: u\npassword: p\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "u", cfg.Username)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestNewFromConfig(t *testing.T) {
	srv := storagetest.NewServer(t)
	cfg := DefaultConfig(storagetest.Username, storagetest.Password)
	cfg.AuthURL = srv.AuthURL()

	client, err := NewFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, client.Authenticate(context.Background()))
	assert.Equal(t, srv.StorageURL(), client.StorageURL())

	_, err = NewFromConfig(nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = NewFromConfig(DefaultConfig("", "p"))
	assert.True(t, errs.IsInvalidInput(err))
}
