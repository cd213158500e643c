// Package swift provides a generic OpenStack Swift implementation of
// filestore.Store. Selectel Cloud Storage speaks the same protocol, so this
// driver also serves accounts that authenticate with a Keystone endpoint
// instead of the Selectel one.
//
// Usage:
//
//	cfg := filestore.DefaultConfig(filestore.ProviderSwift, "https://auth.example.com/v1.0", "user", "key")
//	store, err := swift.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package swift

import (
	"context"
	"io"
	"strings"

	"github.com/koustreak/selcdn/filestore"
	ncw "github.com/ncw/swift/v2"
)

const directoryContentType = "application/directory"

func init() {
	filestore.Register(filestore.ProviderSwift, func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
		return New(ctx, cfg)
	})
}

// Driver is a Swift implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	conn *ncw.Connection
}

// New authenticates against cfg.Endpoint and returns a Driver.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	d := &Driver{conn: &ncw.Connection{
		UserName:    cfg.AccessKey,
		ApiKey:      cfg.SecretKey,
		AuthUrl:     cfg.Endpoint,
		AuthVersion: authVersion(cfg),
		Region:      cfg.Region,
	}}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// --- filestore.Store implementation ---

// Ping authenticates if needed and lists a single container.
func (d *Driver) Ping(ctx context.Context) error {
	if !d.conn.Authenticated() {
		if err := d.conn.Authenticate(ctx); err != nil {
			return mapError(err, "authentication failed", "")
		}
	}
	if _, err := d.conn.Containers(ctx, &ncw.ContainersOpts{Limit: 1}); err != nil {
		return mapError(err, "ping failed", "")
	}
	return nil
}

// Close drops the token.
func (d *Driver) Close() error {
	d.conn.UnAuthenticate()
	return nil
}

// ListBuckets returns all containers of the account.
func (d *Driver) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	raw, err := d.conn.ContainersAll(ctx, nil)
	if err != nil {
		return nil, mapError(err, "failed to list containers", "")
	}

	buckets := make([]filestore.BucketInfo, len(raw))
	for i, c := range raw {
		buckets[i] = filestore.BucketInfo{Name: c.Name, Objects: c.Count, Bytes: c.Bytes}
	}
	return buckets, nil
}

// ListObjects returns objects in bucket that match opts. With a Limit a
// single page is fetched; otherwise every page is.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	listOpts := &ncw.ObjectsOpts{
		Prefix:     opts.Prefix,
		Marker:     opts.Marker,
		Limit:      opts.Limit,
		KeepMarker: true,
	}
	if !opts.Recursive {
		listOpts.Delimiter = '/'
	}

	var (
		raw []ncw.Object
		err error
	)
	if opts.Limit > 0 {
		raw, err = d.conn.Objects(ctx, bucket, listOpts)
	} else {
		raw, err = d.conn.ObjectsAll(ctx, bucket, listOpts)
	}
	if err != nil {
		return nil, mapError(err, "failed to list objects", bucket)
	}

	results := make([]filestore.ObjectInfo, len(raw))
	for i, obj := range raw {
		results[i] = objectInfo(obj)
		if obj.PseudoDirectory {
			results[i].Size = -1
		}
	}
	return results, nil
}

// GetObject opens a streaming handle to the object at key inside bucket.
// The caller MUST call Object.Close() after reading.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	info, err := d.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	file, _, err := d.conn.ObjectOpen(ctx, bucket, key, false, nil)
	if err != nil {
		return nil, mapError(err, "failed to open object", bucket+"/"+key)
	}
	return &object{ReadCloser: file, info: info}, nil
}

// StatObject returns metadata for the object at key inside bucket
// without downloading its content.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	obj, _, err := d.conn.Object(ctx, bucket, key)
	if err != nil {
		return nil, mapError(err, "failed to stat object", bucket+"/"+key)
	}
	info := objectInfo(obj)
	return &info, nil
}

// PutObject uploads r to key inside bucket. The md5 of the streamed
// content is checked against the ETag the server returns.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	if size >= 0 {
		r = io.LimitReader(r, size)
	}
	var h ncw.Headers
	if opts.ContentDisposition != "" {
		h = ncw.Headers{"Content-Disposition": opts.ContentDisposition}
	}

	rx, err := d.conn.ObjectPut(ctx, bucket, key, r, true, "", opts.ContentType, h)
	if err != nil {
		return nil, mapError(err, "failed to put object", bucket+"/"+key)
	}

	return &filestore.ObjectInfo{
		Key:         key,
		Size:        size,
		ContentType: opts.ContentType,
		ETag:        rx["Etag"],
	}, nil
}

// RemoveObject deletes the object at key inside bucket.
func (d *Driver) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := d.conn.ObjectDelete(ctx, bucket, key); err != nil {
		return mapError(err, "failed to remove object", bucket+"/"+key)
	}
	return nil
}

// --- internal types ---

// authVersion returns cfg.AuthVersion, or the version found in the endpoint
// path. Endpoints without one, like the Selectel auth URL, use v1.
func authVersion(cfg *filestore.Config) int {
	if cfg.AuthVersion != 0 {
		return cfg.AuthVersion
	}
	switch {
	case strings.Contains(cfg.Endpoint, "v3"):
		return 3
	case strings.Contains(cfg.Endpoint, "v2"):
		return 2
	default:
		return 1
	}
}

func objectInfo(obj ncw.Object) filestore.ObjectInfo {
	return filestore.ObjectInfo{
		Key:          obj.Name,
		Size:         obj.Bytes,
		ContentType:  obj.ContentType,
		ETag:         obj.Hash,
		LastModified: obj.LastModified,
		IsDir:        obj.PseudoDirectory || obj.ContentType == directoryContentType,
	}
}

// object wraps a Swift download and exposes filestore.Object.
type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}

var _ filestore.Store = (*Driver)(nil)
