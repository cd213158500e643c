package cloudstorage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koustreak/selcdn/api"
	"github.com/koustreak/selcdn/errs"
)

const (
	headerCopyFrom    = "X-Copy-From"
	headerDestination = "Destination"
	methodCopy        = "COPY"

	// lastModifiedLayout is the timestamp format of listing records, in UTC.
	lastModifiedLayout = "2006-01-02T15:04:05.999999"
)

// FileInfo is a file listing record.
type FileInfo struct {
	Name         string    `json:"name,omitempty"`
	Bytes        int64     `json:"bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	Hash         string    `json:"hash,omitempty"`
	LastModified time.Time `json:"last_modified"`

	// Subdir is set instead of Name for the virtual directories of a
	// delimiter listing.
	Subdir string `json:"subdir,omitempty"`

	// Filename is the last segment of Name. Pass it to Limit as a marker to
	// page through a directory.
	Filename string `json:"filename,omitempty"`
}

// UnmarshalJSON accepts the server timestamp format as well as RFC 3339.
func (fi *FileInfo) UnmarshalJSON(data []byte) error {
	type plain FileInfo
	var raw struct {
		plain
		LastModified string `json:"last_modified"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*fi = FileInfo(raw.plain)
	fi.LastModified = parseLastModified(raw.LastModified)
	return nil
}

func parseLastModified(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(lastModifiedLayout, s, time.UTC); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

// key is what a listing collection stores the record under.
func (fi FileInfo) key() string {
	if fi.Name == "" {
		return fi.Subdir
	}
	return fi.Name
}

// File is a snapshot of one stored file. It is not refreshed after
// creation. Once Delete succeeds every accessor except Container and
// IsDeleted returns a DeletedResource error.
//
// A File is not safe for concurrent use.
type File struct {
	api       api.Requester
	container string
	root      string // request path of the container, "/name" or its base URL
	info      FileInfo
	deleted   bool
}

func newFile(r api.Requester, container, root string, info FileInfo) *File {
	if root == "" {
		root = "/" + container
	}
	return &File{api: r, container: container, root: root, info: info}
}

func (f *File) guard() error {
	if f.deleted {
		return errs.Deleted(f.info.Name)
	}
	return nil
}

// Container returns the name of the owning container.
func (f *File) Container() string {
	return f.container
}

// IsDeleted reports whether Delete was called successfully on f.
func (f *File) IsDeleted() bool {
	return f.deleted
}

// Info returns the file snapshot.
func (f *File) Info() (FileInfo, error) {
	if err := f.guard(); err != nil {
		return FileInfo{}, err
	}
	return f.info, nil
}

// Path returns the full path of the file inside its container.
func (f *File) Path() (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	return f.info.Name, nil
}

// Directory returns the path without the last segment, "" at the root.
func (f *File) Directory() (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	dir, _ := splitPath(f.info.Name)
	return dir, nil
}

// Name returns the last segment of the path.
func (f *File) Name() (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	_, name := splitPath(f.info.Name)
	return name, nil
}

// Size returns the file size in bytes.
func (f *File) Size() (int64, error) {
	if err := f.guard(); err != nil {
		return 0, err
	}
	return f.info.Bytes, nil
}

// ContentType returns the MIME type of the file.
func (f *File) ContentType() (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	return f.info.ContentType, nil
}

// LastModified returns the last write time.
func (f *File) LastModified() (time.Time, error) {
	if err := f.guard(); err != nil {
		return time.Time{}, err
	}
	return f.info.LastModified, nil
}

// ETag returns the content hash.
func (f *File) ETag() (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	return f.info.Hash, nil
}

func (f *File) requestPath() string {
	return f.root + "/" + strings.TrimLeft(f.info.Name, "/")
}

// ReadStream opens the file content. The caller must close it.
func (f *File) ReadStream(ctx context.Context) (io.ReadCloser, error) {
	if err := f.guard(); err != nil {
		return nil, err
	}

	resp, err := f.api.Request(ctx, http.MethodGet, f.requestPath(), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		api.DrainBody(resp)
		return nil, errs.NotFound(f.info.Name, resp.StatusCode, "file was not found")
	default:
		api.DrainBody(resp)
		return nil, errs.Failed(errs.OpRead, f.info.Name, resp.StatusCode, "unable to read file")
	}
}

// Read returns the whole file content.
func (f *File) Read(ctx context.Context) ([]byte, error) {
	body, err := f.ReadStream(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnexpectedResponse, "failed to read file content", err)
	}
	return data, nil
}

// Rename moves the file to name inside the same directory and returns the
// new path. name must not contain "/".
//
// The storage has no rename call: the file is copied and the original is
// deleted.
func (f *File) Rename(ctx context.Context, name string) (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	if strings.Contains(name, "/") {
		return "", errs.Invalid(`file name can not contain "/"`)
	}

	dir, _ := splitPath(f.info.Name)
	dest := name
	if dir != "" {
		dest = dir + "/" + name
	}

	zero := int64(0)
	resp, err := f.api.Request(ctx, http.MethodPut, f.root+"/"+dest, &api.Opts{
		Headers:       http.Header{headerCopyFrom: {f.container + "/" + f.info.Name}},
		ContentLength: &zero,
	})
	if err != nil {
		return "", err
	}
	api.DrainBody(resp)

	if resp.StatusCode != http.StatusCreated {
		return "", errs.Failed(errs.OpRename, f.info.Name, resp.StatusCode, "unable to rename file to "+name)
	}

	if err := f.Delete(ctx); err != nil {
		return "", err
	}
	f.deleted = false
	f.info.Name = dest
	f.info.Filename = name
	return dest, nil
}

// Copy copies the file to dest inside destContainer, or inside its own
// container when destContainer is empty. It returns the full destination
// "/container/path".
func (f *File) Copy(ctx context.Context, dest, destContainer string) (string, error) {
	if err := f.guard(); err != nil {
		return "", err
	}
	if destContainer == "" {
		destContainer = f.container
	}
	full := "/" + destContainer + "/" + strings.TrimLeft(dest, "/")

	resp, err := f.api.Request(ctx, methodCopy, f.requestPath(), &api.Opts{
		Headers: http.Header{headerDestination: {full}},
	})
	if err != nil {
		return "", err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusCreated {
		return "", errs.Failed(errs.OpCopy, f.info.Name, resp.StatusCode, "unable to copy file to "+full)
	}
	return full, nil
}

// Delete removes the file and marks f as deleted.
func (f *File) Delete(ctx context.Context) error {
	if err := f.guard(); err != nil {
		return err
	}

	resp, err := f.api.Request(ctx, http.MethodDelete, f.requestPath(), nil)
	if err != nil {
		return err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusNoContent {
		return errs.Failed(errs.OpDelete, f.info.Name, resp.StatusCode, "unable to delete file")
	}
	f.deleted = true
	return nil
}

type fileJSON struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Directory    string    `json:"directory"`
	Container    string    `json:"container"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
}

// MarshalJSON encodes the file attributes. It fails for deleted files.
func (f *File) MarshalJSON() ([]byte, error) {
	if err := f.guard(); err != nil {
		return nil, err
	}
	dir, name := splitPath(f.info.Name)
	return json.Marshal(fileJSON{
		Name:         name,
		Path:         f.info.Name,
		Directory:    dir,
		Container:    f.container,
		Size:         f.info.Bytes,
		ContentType:  f.info.ContentType,
		LastModified: f.info.LastModified,
		ETag:         f.info.Hash,
	})
}

// splitPath splits p at its last "/".
func splitPath(p string) (dir, name string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}
