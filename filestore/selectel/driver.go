// Package selectel provides a Selectel Cloud Storage implementation of
// filestore.Store. Buckets are containers and objects are files.
//
// Usage:
//
//	cfg := filestore.DefaultConfig(filestore.ProviderSelectel, "", "user", "password")
//	store, err := selectel.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	buckets, err := store.ListBuckets(ctx)
package selectel

import (
	"context"
	"io"

	"github.com/koustreak/selcdn/api"
	"github.com/koustreak/selcdn/cloudstorage"
	"github.com/koustreak/selcdn/filestore"
)

const directoryContentType = "application/directory"

func init() {
	filestore.Register(filestore.ProviderSelectel, func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
		return New(ctx, cfg)
	})
}

// Driver is a Selectel implementation of filestore.Store.
// It is safe for concurrent use: every call works on fresh accessors.
type Driver struct {
	client  *api.Client
	storage *cloudstorage.Storage
}

// New builds an api.Client from cfg and returns a Driver.
// It calls Ping to validate the credentials before returning.
func New(ctx context.Context, cfg *filestore.Config, opts ...api.Option) (*Driver, error) {
	apiCfg := api.DefaultConfig(cfg.AccessKey, cfg.SecretKey)
	if cfg.Endpoint != "" {
		apiCfg.AuthURL = cfg.Endpoint
	}
	apiCfg.Log = cfg.Log

	client, err := api.NewFromConfig(apiCfg, opts...)
	if err != nil {
		return nil, err
	}

	d := &Driver{client: client, storage: cloudstorage.New(client)}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// --- filestore.Store implementation ---

// Ping authenticates and lists a single container.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.client.Authenticate(ctx); err != nil {
		return err
	}
	_, err := d.storage.Containers(ctx, 1, "")
	return err
}

// Close is a no-op: the client holds no resources besides its token.
func (d *Driver) Close() error {
	return nil
}

// ListBuckets returns all containers of the account.
func (d *Driver) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	containers, err := d.storage.Containers(ctx, 0, "")
	if err != nil {
		return nil, err
	}

	buckets := make([]filestore.BucketInfo, 0, containers.Len())
	for name, c := range containers.All() {
		// listing records are loaded, so Info sends no request
		info, err := c.Info(ctx)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, filestore.BucketInfo{Name: name, Objects: info.Count, Bytes: info.Bytes})
	}
	return buckets, nil
}

// ListObjects returns files in bucket that match opts. Non-recursive
// listings group keys by "/" and report the groups as IsDir entries.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	loader := d.storage.Container(bucket).Files().
		WithPrefix(opts.Prefix).
		Limit(opts.Limit, opts.Marker)
	if !opts.Recursive {
		loader = loader.WithDelimiter("/")
	}

	files, err := loader.Get(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]filestore.ObjectInfo, 0, files.Len())
	for _, fi := range files.All() {
		if fi.Subdir != "" {
			results = append(results, filestore.ObjectInfo{Key: fi.Subdir, Size: -1, IsDir: true})
			continue
		}
		results = append(results, objectInfo(fi))
	}
	return results, nil
}

// GetObject opens a streaming handle to the file at key inside bucket.
// The caller MUST call Object.Close() after reading.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	f, err := d.storage.Container(bucket).File(ctx, key)
	if err != nil {
		return nil, err
	}
	fi, err := f.Info()
	if err != nil {
		return nil, err
	}

	body, err := f.ReadStream(ctx)
	if err != nil {
		return nil, err
	}

	info := objectInfo(fi)
	return &object{ReadCloser: body, info: &info}, nil
}

// StatObject returns the listing record of the file at key inside bucket.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	f, err := d.storage.Container(bucket).File(ctx, key)
	if err != nil {
		return nil, err
	}
	fi, err := f.Info()
	if err != nil {
		return nil, err
	}

	info := objectInfo(fi)
	return &info, nil
}

// PutObject uploads r to key inside bucket. The content is streamed, so no
// checksum is sent.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	if size >= 0 {
		r = io.LimitReader(r, size)
	}
	etag, err := d.storage.Container(bucket).UploadFromStream(ctx, key, r, &cloudstorage.UploadParams{
		ContentType:        opts.ContentType,
		ContentDisposition: opts.ContentDisposition,
	})
	if err != nil {
		return nil, err
	}

	return &filestore.ObjectInfo{
		Key:         key,
		Size:        size,
		ContentType: opts.ContentType,
		ETag:        etag,
	}, nil
}

// RemoveObject deletes the file at key inside bucket.
func (d *Driver) RemoveObject(ctx context.Context, bucket, key string) error {
	f, err := d.storage.Container(bucket).File(ctx, key)
	if err != nil {
		return err
	}
	return f.Delete(ctx)
}

// --- internal types ---

func objectInfo(fi cloudstorage.FileInfo) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          fi.Name,
		Size:         fi.Bytes,
		ContentType:  fi.ContentType,
		ETag:         fi.Hash,
		LastModified: fi.LastModified,
		IsDir:        fi.ContentType == directoryContentType,
	}
}

// object wraps a file content stream and exposes filestore.Object.
type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}

var _ filestore.Store = (*Driver)(nil)
