package filestore

import (
	"io"
	"time"
)

// BucketInfo describes a bucket (a container in Swift terms).
type BucketInfo struct {
	Name string

	// CreatedAt is only reported by S3 backends.
	CreatedAt time.Time

	// Objects and Bytes are only reported by Swift backends; S3 leaves
	// them zero.
	Objects int64
	Bytes   int64
}

// ObjectInfo is the listing record of one object.
type ObjectInfo struct {
	// Key is the path inside the bucket, e.g. "images/photo.jpg".
	Key string

	// Size in bytes, -1 for virtual directories.
	Size int64

	ContentType  string
	ETag         string // md5 of the content for non-multipart uploads
	LastModified time.Time

	// IsDir marks a common prefix of a delimited listing or a directory
	// marker object.
	IsDir bool
}

// Object is an open download. Close it when done.
type Object interface {
	io.ReadCloser

	Info() *ObjectInfo
}

// ListOptions filter and page ListObjects.
type ListOptions struct {
	// Prefix keeps keys starting with it.
	Prefix string

	// Recursive lists every key below Prefix. Otherwise keys are grouped
	// at the next "/" and the groups come back as IsDir entries.
	Recursive bool

	// Limit caps the result, 0 for no cap.
	Limit int

	// Marker starts the listing after this key.
	Marker string
}

// PutOptions are the optional settings of PutObject.
type PutOptions struct {
	ContentType        string
	ContentDisposition string
}
