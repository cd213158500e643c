package cloudstorage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/koustreak/selcdn/api"
	"github.com/koustreak/selcdn/errs"
)

// ContainerType is the visibility of a container.
type ContainerType string

const (
	ContainerPublic  ContainerType = "public"
	ContainerPrivate ContainerType = "private"
	ContainerGallery ContainerType = "gallery"
)

// Valid reports whether t is one of the known container types.
func (t ContainerType) Valid() bool {
	switch t {
	case ContainerPublic, ContainerPrivate, ContainerGallery:
		return true
	}
	return false
}

// Container response headers.
const (
	headerContainerType  = containerMetaPrefix + typeMetaName
	headerObjectCount    = "X-Container-Object-Count"
	headerBytesUsed      = "X-Container-Bytes-Used"
	headerReceivedBytes  = "X-Received-Bytes"
	headerTransferBytes  = "X-Transfered-Bytes"
	directoryContentType = "application/directory"
)

// ContainerInfo is a snapshot of container attributes, in the shape of a
// container listing record.
type ContainerInfo struct {
	Name    string        `json:"name"`
	Type    ContainerType `json:"type"`
	Count   int64         `json:"count"`
	Bytes   int64         `json:"bytes"`
	RxBytes int64         `json:"rx_bytes"`
	TxBytes int64         `json:"tx_bytes"`

	// Meta is the user metadata. nil means it has not been fetched yet.
	Meta map[string]string `json:"-"`
}

// Container is an accessor for one container. Attributes are fetched with
// a HEAD request on first use and cached afterwards.
//
// A Container is not safe for concurrent use.
type Container struct {
	api      api.Requester
	uploader uploader
	name     string
	baseURL  string
	info     *ContainerInfo // nil until loaded
}

func newContainer(r api.Requester, name string, info *ContainerInfo) *Container {
	return &Container{
		api:      r,
		uploader: uploader{api: r},
		name:     name,
		info:     info,
	}
}

// Name returns the container name. It never issues a request.
func (c *Container) Name() string {
	return c.name
}

// SetBaseURL makes every call of this container go to u (an absolute URL)
// instead of the storage URL. An empty u restores the default.
func (c *Container) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// URL returns the public address of path inside the container, or of the
// container itself when path is empty. The storage URL is only known after
// the client has authenticated.
func (c *Container) URL(path string) string {
	base := c.baseURL
	if base == "" {
		base = strings.TrimRight(c.api.StorageURL(), "/") + "/" + c.name
	}
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// path returns the request path of p inside the container.
func (c *Container) path(p string) string {
	root := c.baseURL
	if root == "" {
		root = "/" + c.name
	}
	if p == "" {
		return root
	}
	return root + "/" + strings.TrimLeft(p, "/")
}

// load fetches the container attributes unless they are cached. withMeta
// also requires the user metadata, which listing records do not carry.
func (c *Container) load(ctx context.Context, withMeta bool) error {
	if c.info != nil && (!withMeta || c.info.Meta != nil) {
		return nil
	}

	resp, err := c.api.Request(ctx, http.MethodHead, c.path(""), nil)
	if err != nil {
		return err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusNoContent {
		return errs.NotFound(c.name, resp.StatusCode, "container was not found")
	}

	h := resp.Header
	c.info = &ContainerInfo{
		Name:    c.name,
		Type:    ContainerType(h.Get(headerContainerType)),
		Count:   headerInt(h, headerObjectCount),
		Bytes:   headerInt(h, headerBytesUsed),
		RxBytes: headerInt(h, headerReceivedBytes),
		TxBytes: headerInt(h, headerTransferBytes),
		Meta:    extractMeta(containerMetaPrefix, h, typeMetaName),
	}
	return nil
}

func headerInt(h http.Header, key string) int64 {
	n, _ := strconv.ParseInt(h.Get(key), 10, 64)
	return n
}

// Info returns a copy of the container attributes.
func (c *Container) Info(ctx context.Context) (ContainerInfo, error) {
	if err := c.load(ctx, false); err != nil {
		return ContainerInfo{}, err
	}
	info := *c.info
	if info.Meta != nil {
		info.Meta = make(map[string]string, len(c.info.Meta))
		for k, v := range c.info.Meta {
			info.Meta[k] = v
		}
	}
	return info, nil
}

// Type returns the container type. An empty type reported by the server
// reads as public.
func (c *Container) Type(ctx context.Context) (ContainerType, error) {
	if err := c.load(ctx, false); err != nil {
		return "", err
	}
	if c.info.Type == "" {
		return ContainerPublic, nil
	}
	return c.info.Type, nil
}

// FilesCount returns the number of objects in the container.
func (c *Container) FilesCount(ctx context.Context) (int64, error) {
	if err := c.load(ctx, false); err != nil {
		return 0, err
	}
	return c.info.Count, nil
}

// Size returns the total size of the container in bytes.
func (c *Container) Size(ctx context.Context) (int64, error) {
	if err := c.load(ctx, false); err != nil {
		return 0, err
	}
	return c.info.Bytes, nil
}

// UploadedBytes returns the traffic received by the container.
func (c *Container) UploadedBytes(ctx context.Context) (int64, error) {
	if err := c.load(ctx, false); err != nil {
		return 0, err
	}
	return c.info.RxBytes, nil
}

// DownloadedBytes returns the traffic served by the container.
func (c *Container) DownloadedBytes(ctx context.Context) (int64, error) {
	if err := c.load(ctx, false); err != nil {
		return 0, err
	}
	return c.info.TxBytes, nil
}

func (c *Container) isType(ctx context.Context, t ContainerType) (bool, error) {
	typ, err := c.Type(ctx)
	if err != nil {
		return false, err
	}
	return typ == t, nil
}

// IsPublic reports whether the container is public.
func (c *Container) IsPublic(ctx context.Context) (bool, error) {
	return c.isType(ctx, ContainerPublic)
}

// IsPrivate reports whether the container is private.
func (c *Container) IsPrivate(ctx context.Context) (bool, error) {
	return c.isType(ctx, ContainerPrivate)
}

// IsGallery reports whether the container is a gallery.
func (c *Container) IsGallery(ctx context.Context) (bool, error) {
	return c.isType(ctx, ContainerGallery)
}

// SetType changes the container type. Nothing is sent when the type
// already matches.
func (c *Container) SetType(ctx context.Context, t ContainerType) error {
	if !t.Valid() {
		return errs.Invalid("unknown container type " + strconv.Quote(string(t)))
	}
	current, err := c.Type(ctx)
	if err != nil {
		return err
	}
	if current == t {
		return nil
	}

	resp, err := c.api.Request(ctx, http.MethodPost, c.path(""), &api.Opts{
		Headers: http.Header{headerContainerType: {string(t)}},
	})
	if err != nil {
		return err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusAccepted {
		return errs.Failed(errs.OpSetType, c.name, resp.StatusCode, "unable to set container type to "+string(t))
	}
	c.info.Type = t
	return nil
}

// SetPublic is SetType(ctx, ContainerPublic).
func (c *Container) SetPublic(ctx context.Context) error {
	return c.SetType(ctx, ContainerPublic)
}

// SetPrivate is SetType(ctx, ContainerPrivate).
func (c *Container) SetPrivate(ctx context.Context) error {
	return c.SetType(ctx, ContainerPrivate)
}

// SetGallery is SetType(ctx, ContainerGallery).
func (c *Container) SetGallery(ctx context.Context) error {
	return c.SetType(ctx, ContainerGallery)
}

// HasMeta reports whether the metadata entry name is set. name may carry
// the X-Container-Meta- prefix or not.
func (c *Container) HasMeta(ctx context.Context, name string) (bool, error) {
	if err := c.load(ctx, true); err != nil {
		return false, err
	}
	_, ok := c.info.Meta[metaName(containerMetaPrefix, name)]
	return ok, nil
}

// Meta returns the metadata entry name, or an InvalidInput error when it
// is not set.
func (c *Container) Meta(ctx context.Context, name string) (string, error) {
	if err := c.load(ctx, true); err != nil {
		return "", err
	}
	v, ok := c.info.Meta[metaName(containerMetaPrefix, name)]
	if !ok {
		return "", errs.Invalid("metadata " + strconv.Quote(name) + " does not exist")
	}
	return v, nil
}

// SetMeta stores the given metadata entries. Keys may carry the
// X-Container-Meta- prefix or not. The Type key is reserved for the
// container visibility and is rejected; use SetType instead.
func (c *Container) SetMeta(ctx context.Context, meta map[string]string) error {
	for k := range meta {
		if metaName(containerMetaPrefix, k) == typeMetaName {
			return errs.Invalid("metadata " + strconv.Quote(k) + " is reserved, use SetType")
		}
	}

	resp, err := c.api.Request(ctx, http.MethodPost, c.path(""), &api.Opts{
		Headers: metaHeaders(containerMetaPrefix, meta),
	})
	if err != nil {
		return err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusAccepted {
		return errs.Failed(errs.OpSetMeta, c.name, resp.StatusCode, "unable to update container metadata")
	}

	if c.info != nil && c.info.Meta != nil {
		for k, v := range meta {
			c.info.Meta[metaName(containerMetaPrefix, k)] = v
		}
	}
	return nil
}

// Files returns a listing builder for this container.
func (c *Container) Files() *FilesLoader {
	return newFilesLoader(c.api, c.name, c.path(""))
}

// FileExists reports whether a file exists at path.
func (c *Container) FileExists(ctx context.Context, path string) (bool, error) {
	return c.Files().Exists(ctx, path)
}

// File looks up the file at path.
func (c *Container) File(ctx context.Context, path string) (*File, error) {
	return c.Files().Find(ctx, path)
}

// CreateDir creates a virtual directory and returns its ETag.
func (c *Container) CreateDir(ctx context.Context, name string) (string, error) {
	zero := int64(0)
	resp, err := c.api.Request(ctx, http.MethodPut, c.path(name), &api.Opts{
		Headers:       http.Header{headerContentType: {directoryContentType}},
		ContentLength: &zero,
	})
	if err != nil {
		return "", err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusCreated {
		return "", errs.Failed(errs.OpCreate, name, resp.StatusCode, "unable to create directory")
	}
	return resp.Header.Get(headerETag), nil
}

// DeleteDir removes a virtual directory.
func (c *Container) DeleteDir(ctx context.Context, name string) error {
	resp, err := c.api.Request(ctx, http.MethodDelete, c.path(name), nil)
	if err != nil {
		return err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusNoContent {
		return errs.Failed(errs.OpDelete, name, resp.StatusCode, "unable to delete directory")
	}
	return nil
}

// UploadFromString uploads contents to path and returns the ETag reported
// by the server. An md5 checksum is sent unless params.SkipChecksum is set.
func (c *Container) UploadFromString(ctx context.Context, path, contents string, params *UploadParams) (string, error) {
	return c.uploader.uploadBytes(ctx, c.path(path), []byte(contents), params)
}

// UploadFromStream uploads everything read from r to path and returns the
// ETag reported by the server. No checksum is sent.
func (c *Container) UploadFromStream(ctx context.Context, path string, r io.Reader, params *UploadParams) (string, error) {
	return c.uploader.uploadStream(ctx, c.path(path), r, params)
}

// Delete removes the container. The container must be empty.
func (c *Container) Delete(ctx context.Context) error {
	resp, err := c.api.Request(ctx, http.MethodDelete, c.path(""), nil)
	if err != nil {
		return err
	}
	defer api.DrainBody(resp)

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return errs.NotFound(c.name, resp.StatusCode, "container was not found")
	case http.StatusConflict:
		return errs.Failed(errs.OpDelete, c.name, resp.StatusCode, "container must be empty")
	default:
		return errs.Failed(errs.OpDelete, c.name, resp.StatusCode, "unable to delete container")
	}
}

type containerJSON struct {
	Name            string        `json:"name"`
	Type            ContainerType `json:"type"`
	FilesCount      int64         `json:"files_count"`
	Size            int64         `json:"size"`
	UploadedBytes   int64         `json:"uploaded_bytes"`
	DownloadedBytes int64         `json:"downloaded_bytes"`
}

// MarshalJSON encodes the container attributes, loading them first if
// needed.
func (c *Container) MarshalJSON() ([]byte, error) {
	typ, err := c.Type(context.Background())
	if err != nil {
		return nil, err
	}
	return json.Marshal(containerJSON{
		Name:            c.name,
		Type:            typ,
		FilesCount:      c.info.Count,
		Size:            c.info.Bytes,
		UploadedBytes:   c.info.RxBytes,
		DownloadedBytes: c.info.TxBytes,
	})
}
