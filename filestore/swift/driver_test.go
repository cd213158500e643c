package swift

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/filestore"
	"github.com/koustreak/selcdn/internal/storagetest"
	ncw "github.com/ncw/swift/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T) (*storagetest.Server, *Driver) {
	t.Helper()
	srv := storagetest.NewServer(t)
	srv.PutContainer("media", "public")
	srv.PutObject("media", "readme.txt", []byte("hello"), "text/plain")
	srv.PutObject("media", "images/a.png", []byte("png-a"), "image/png")
	srv.PutObject("media", "images/b.png", []byte("png-b"), "image/png")

	cfg := filestore.DefaultConfig(filestore.ProviderSwift, srv.AuthURL(), storagetest.Username, storagetest.Password)
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return srv, d
}

func TestNew_WrongCredentials(t *testing.T) {
	srv := storagetest.NewServer(t)
	cfg := filestore.DefaultConfig(filestore.ProviderSwift, srv.AuthURL(), storagetest.Username, "wrong")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errs.IsAuthenticationFailed(err))
}

func TestAuthVersion(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		explicit int
		want     int
	}{
		{"selectel endpoint", "https://auth.selcdn.ru", 0, 1},
		{"v1 path", "https://auth.example.com/v1.0", 0, 1},
		{"keystone v2", "https://keystone.example.com/v2.0", 0, 2},
		{"keystone v3", "https://keystone.example.com/v3", 0, 3},
		{"explicit wins", "https://keystone.example.com/v3", 2, 2},
		{"explicit on bare host", "https://auth.example.com", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := filestore.DefaultConfig(filestore.ProviderSwift, tt.endpoint, "user", "key")
			cfg.AuthVersion = tt.explicit
			assert.Equal(t, tt.want, authVersion(cfg))
		})
	}
}

func TestNew_ExplicitAuthVersion(t *testing.T) {
	srv := storagetest.NewServer(t)
	cfg := filestore.DefaultConfig(filestore.ProviderSwift, srv.AuthURL(), storagetest.Username, storagetest.Password)
	cfg.AuthVersion = 1

	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, 1, d.conn.AuthVersion)
	assert.Equal(t, 1, srv.AuthCalls())
}

func TestOpen_Registered(t *testing.T) {
	srv := storagetest.NewServer(t)
	cfg := filestore.DefaultConfig(filestore.ProviderSwift, srv.AuthURL(), storagetest.Username, storagetest.Password)

	store, err := filestore.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &Driver{}, store)
}

func TestDriver_ListBuckets(t *testing.T) {
	srv, d := newTestDriver(t)
	srv.PutContainer("backups", "private")

	buckets, err := d.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "backups", buckets[0].Name)
	assert.Equal(t, "media", buckets[1].Name)
	assert.Equal(t, int64(3), buckets[1].Objects)
	assert.Equal(t, int64(15), buckets[1].Bytes)
}

func TestDriver_ListObjects(t *testing.T) {
	_, d := newTestDriver(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		opts     filestore.ListOptions
		wantKeys []string
		wantDirs []string
	}{
		{
			name:     "recursive",
			opts:     filestore.ListOptions{Recursive: true},
			wantKeys: []string{"images/a.png", "images/b.png", "readme.txt"},
		},
		{
			name:     "grouped by directory",
			opts:     filestore.ListOptions{},
			wantKeys: []string{"images/", "readme.txt"},
			wantDirs: []string{"images/"},
		},
		{
			name:     "prefix",
			opts:     filestore.ListOptions{Prefix: "images/", Recursive: true},
			wantKeys: []string{"images/a.png", "images/b.png"},
		},
		{
			name:     "single page",
			opts:     filestore.ListOptions{Recursive: true, Limit: 1, Marker: "images/a.png"},
			wantKeys: []string{"images/b.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects, err := d.ListObjects(ctx, "media", tt.opts)
			require.NoError(t, err)

			var keys, dirs []string
			for _, o := range objects {
				keys = append(keys, o.Key)
				if o.IsDir {
					dirs = append(dirs, o.Key)
					assert.Equal(t, int64(-1), o.Size)
				}
			}
			assert.Equal(t, tt.wantKeys, keys)
			assert.Equal(t, tt.wantDirs, dirs)
		})
	}
}

func TestDriver_ListObjects_MissingBucket(t *testing.T) {
	_, d := newTestDriver(t)

	_, err := d.ListObjects(context.Background(), "nope", filestore.ListOptions{})
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_GetAndStatObject(t *testing.T) {
	_, d := newTestDriver(t)
	ctx := context.Background()

	info, err := d.StatObject(ctx, "media", "images/a.png")
	require.NoError(t, err)
	assert.Equal(t, "images/a.png", info.Key)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	obj, err := d.GetObject(ctx, "media", "images/a.png")
	require.NoError(t, err)
	defer obj.Close()

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "png-a", string(data))
	assert.Equal(t, int64(5), obj.Info().Size)

	_, err = d.StatObject(ctx, "media", "images/c.png")
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_PutObject(t *testing.T) {
	srv, d := newTestDriver(t)
	ctx := context.Background()

	info, err := d.PutObject(ctx, "media", "docs/report.csv", bytes.NewReader([]byte("a,b\n1,2\n")), -1,
		filestore.PutOptions{ContentType: "text/csv", ContentDisposition: "attachment"})
	require.NoError(t, err)
	assert.Equal(t, "docs/report.csv", info.Key)
	assert.NotEmpty(t, info.ETag)

	stored, ok := srv.Object("media", "docs/report.csv")
	require.True(t, ok)
	assert.Equal(t, "a,b\n1,2\n", string(stored))

	req := srv.LastRequest()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "text/csv", req.Header.Get("Content-Type"))
	assert.Equal(t, "attachment", req.Header.Get("Content-Disposition"))
}

func TestDriver_RemoveObject(t *testing.T) {
	srv, d := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.RemoveObject(ctx, "media", "readme.txt"))
	_, ok := srv.Object("media", "readme.txt")
	assert.False(t, ok)

	err := d.RemoveObject(ctx, "media", "readme.txt")
	assert.True(t, errs.IsNotFound(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"object not found", ncw.ObjectNotFound, errs.ErrKindNotFound},
		{"container not found", ncw.ContainerNotFound, errs.ErrKindNotFound},
		{"authorization", ncw.AuthorizationFailed, errs.ErrKindAuthenticationFailed},
		{"forbidden", ncw.Forbidden, errs.ErrKindAuthenticationFailed},
		{"bad request", ncw.BadRequest, errs.ErrKindInvalidInput},
		{"not empty", ncw.ContainerNotEmpty, errs.ErrKindOperationFailed},
		{"corrupted", ncw.ObjectCorrupted, errs.ErrKindOperationFailed},
		{"timeout", ncw.TimeoutError, errs.ErrKindTimeout},
		{"rate limit", ncw.RateLimit, errs.ErrKindUnexpectedResponse},
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"wrapped cancel", fmt.Errorf("put: %w", context.Canceled), errs.ErrKindTimeout},
		{"transport", errors.New("dial tcp: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "boom", "media/readme.txt")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, "media/readme.txt", got.Resource)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, mapError(nil, "boom", ""))
}
