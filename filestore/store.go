// Package filestore is a provider-neutral view of object storage.
//
// The selectel driver runs on top of the cloudstorage package, the swift
// driver serves any OpenStack Swift cluster, and the minio driver speaks S3
// to MinIO or to the Selectel S3 gateway. Drivers register themselves on
// import; callers pick one through Config.Provider and depend only on this
// package.
//
// Usage:
//
//	import _ "github.com/koustreak/selcdn/filestore/selectel"
//
//	cfg := filestore.DefaultConfig(filestore.ProviderSelectel, "", "user", "password")
//	store, err := filestore.Open(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	buckets, err := store.ListBuckets(ctx)
package filestore

import (
	"context"
	"io"
)

// Store is implemented by every driver. Errors are *errs.Error values.
type Store interface {
	// Ping checks the endpoint and the credentials.
	Ping(ctx context.Context) error

	Close() error

	ListBuckets(ctx context.Context) ([]BucketInfo, error)

	// ListObjects returns the objects of bucket that match opts.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens key for reading. The caller must close the Object.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns the record of key without its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PutObject stores everything read from r at key. size is the content
	// length, or -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (*ObjectInfo, error)

	RemoveObject(ctx context.Context, bucket, key string) error
}
