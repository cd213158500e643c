package filestore

import (
	"context"
	"strings"
	"testing"

	"github.com/koustreak/selcdn/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerFake Provider = "fake"

type fakeStore struct {
	Store
	cfg *Config
}

func init() {
	Register(providerFake, func(_ context.Context, cfg *Config) (Store, error) {
		return &fakeStore{cfg: cfg}, nil
	})
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("FILESTORE_ACCESS_KEY", "")
	t.Setenv("FILESTORE_SECRET_KEY", "")

	cfg, err := LoadConfig(strings.NewReader(`
provider: minio
endpoint: localhost:9000
access_key: minioadmin
secret_key: minioadmin
use_ssl: true
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, ProviderMinIO, cfg.Provider)
	assert.Equal(t, "localhost:9000", cfg.Endpoint)
	assert.Equal(t, "minioadmin", cfg.AccessKey)
	assert.True(t, cfg.UseSSL)
	require.NotNil(t, cfg.Log)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvOverridesCredentials(t *testing.T) {
	t.Setenv("FILESTORE_ACCESS_KEY", "SEL_22302")
	t.Setenv("FILESTORE_SECRET_KEY", "from-env")

	cfg, err := LoadConfig(strings.NewReader("provider: selectel\n"))
	require.NoError(t, err)
	assert.Equal(t, "SEL_22302", cfg.AccessKey)
	assert.Equal(t, "from-env", cfg.SecretKey)
	assert.Empty(t, cfg.Endpoint)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("FILESTORE_ACCESS_KEY", "")
	t.Setenv("FILESTORE_SECRET_KEY", "")

	_, err := LoadConfig(strings.NewReader("provider: [selectel"))
	assert.True(t, errs.IsInvalidInput(err))

	_, err = LoadConfig(strings.NewReader(""))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{"selectel without endpoint", DefaultConfig(ProviderSelectel, "", "user", "pass"), ""},
		{"minio", DefaultConfig(ProviderMinIO, "localhost:9000", "key", "secret"), ""},
		{"no provider", DefaultConfig("", "", "user", "pass"), "provider is required"},
		{"minio without endpoint", DefaultConfig(ProviderMinIO, "", "key", "secret"), "endpoint is required for minio"},
		{"swift without endpoint", DefaultConfig(ProviderSwift, "", "user", "key"), "endpoint is required for swift"},
		{"no secret", DefaultConfig(ProviderSelectel, "", "user", ""), "credentials are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, DefaultConfig(providerFake, "", "user", "pass"))
	require.NoError(t, err)
	fs, ok := store.(*fakeStore)
	require.True(t, ok)
	assert.Equal(t, "user", fs.cfg.AccessKey)

	_, err = Open(ctx, nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Open(ctx, DefaultConfig("ftp", "", "user", "pass"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "unknown provider ftp")
}

func TestRegister(t *testing.T) {
	assert.Contains(t, Providers(), providerFake)

	assert.Panics(t, func() {
		Register(providerFake, func(context.Context, *Config) (Store, error) { return nil, nil })
	})
	assert.Panics(t, func() { Register("nil", nil) })
}
