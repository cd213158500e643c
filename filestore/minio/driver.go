// Package minio provides an S3 implementation of filestore.Store. It talks
// to MinIO or to the S3 gateway of Selectel Cloud Storage, whose buckets are
// the same containers the Swift API sees.
//
// Usage:
//
//	cfg := filestore.DefaultConfig(filestore.ProviderMinIO, "s3.storage.selcloud.ru", "access", "secret")
//	cfg.UseSSL = true
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"strings"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func init() {
	filestore.Register(filestore.ProviderMinIO, func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
		return New(ctx, cfg)
	})
}

// Driver is an S3 implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
}

// New builds an S3 client for cfg.Endpoint and checks it with Ping.
// Buckets are addressed path-style, which both MinIO and Selectel accept.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: miniogo.BucketLookupPath,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid s3 endpoint "+cfg.Endpoint, err)
	}

	d := &Driver{client: client}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping lists buckets to check the endpoint and the keys.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op: the SDK keeps no per-driver connections.
func (d *Driver) Close() error {
	return nil
}

// ListBuckets returns all buckets of the account.
func (d *Driver) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	raw, err := d.client.ListBuckets(ctx)
	if err != nil {
		return nil, mapError(err, "failed to list buckets")
	}

	out := make([]filestore.BucketInfo, 0, len(raw))
	for _, b := range raw {
		out = append(out, filestore.BucketInfo{Name: b.Name, CreatedAt: b.CreationDate})
	}
	return out, nil
}

// ListObjects returns objects in bucket that match opts. Common prefixes of
// a non-recursive listing come back as IsDir entries with Size -1.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	// stops the SDK's listing goroutine on early return
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  opts.Recursive,
		StartAfter: opts.Marker,
		MaxKeys:    opts.Limit,
	})

	var out []filestore.ObjectInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}
		out = append(out, objectInfo(obj))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// GetObject opens the object for streaming. The caller MUST close it.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	// GetObject is lazy; Stat sends the request and surfaces NoSuchKey.
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapError(err, "failed to get object")
	}

	info := objectInfo(stat)
	return &object{ReadCloser: obj, info: &info}, nil
}

// StatObject returns the metadata of the object without its content.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	info := objectInfo(stat)
	return &info, nil
}

// PutObject uploads r. A negative size makes the SDK use multipart upload.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	up, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType:        opts.ContentType,
		ContentDisposition: opts.ContentDisposition,
	})
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &filestore.ObjectInfo{
		Key:          up.Key,
		Size:         up.Size,
		ContentType:  opts.ContentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
	}, nil
}

// RemoveObject deletes the object. S3 reports success for missing keys.
func (d *Driver) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := d.client.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

func objectInfo(obj miniogo.ObjectInfo) filestore.ObjectInfo {
	info := filestore.ObjectInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		ETag:         obj.ETag,
		LastModified: obj.LastModified,
	}
	if strings.HasSuffix(obj.Key, "/") {
		info.IsDir = true
		info.Size = -1
	}
	return info
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}

var _ filestore.Store = (*Driver)(nil)
