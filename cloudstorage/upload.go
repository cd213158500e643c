package cloudstorage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/koustreak/selcdn/api"
	"github.com/koustreak/selcdn/errs"
)

// Upload header names.
const (
	headerETag               = "ETag"
	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	headerDeleteAfter        = "X-Delete-After"
	headerDeleteAt           = "X-Delete-At"
)

// UploadParams are the optional settings of an upload. The zero value
// uploads with a checksum and lets the server guess the content type.
type UploadParams struct {
	ContentType        string
	ContentDisposition string

	// DeleteAfter schedules removal relative to the upload, in whole seconds.
	DeleteAfter time.Duration
	// DeleteAt schedules removal at a fixed time.
	DeleteAt time.Time

	// SkipChecksum disables the ETag integrity check. Stream uploads never
	// send a checksum.
	SkipChecksum bool
}

func (p *UploadParams) headers() http.Header {
	h := make(http.Header)
	if p == nil {
		return h
	}
	if p.ContentType != "" {
		h.Set(headerContentType, p.ContentType)
	}
	if p.ContentDisposition != "" {
		h.Set(headerContentDisposition, p.ContentDisposition)
	}
	if p.DeleteAfter > 0 {
		h.Set(headerDeleteAfter, strconv.FormatInt(int64(p.DeleteAfter/time.Second), 10))
	}
	if !p.DeleteAt.IsZero() {
		h.Set(headerDeleteAt, strconv.FormatInt(p.DeleteAt.Unix(), 10))
	}
	return h
}

// uploader sends file content with a PUT and expects 201.
type uploader struct {
	api api.Requester
}

// uploadBytes uploads data, adding an md5 ETag unless params disable it.
func (u uploader) uploadBytes(ctx context.Context, path string, data []byte, params *UploadParams) (string, error) {
	h := params.headers()
	if params == nil || !params.SkipChecksum {
		sum := md5.Sum(data)
		h.Set(headerETag, hex.EncodeToString(sum[:]))
	}
	size := int64(len(data))
	return u.upload(ctx, path, h, bytes.NewReader(data), &size)
}

// uploadStream uploads r as is. The length is left to the transport.
func (u uploader) uploadStream(ctx context.Context, path string, r io.Reader, params *UploadParams) (string, error) {
	return u.upload(ctx, path, params.headers(), r, nil)
}

func (u uploader) upload(ctx context.Context, path string, h http.Header, body io.Reader, size *int64) (string, error) {
	resp, err := u.api.Request(ctx, http.MethodPut, path, &api.Opts{
		Headers:       h,
		Body:          body,
		ContentLength: size,
	})
	if err != nil {
		return "", err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusCreated {
		return "", errs.Failed(errs.OpUpload, path, resp.StatusCode, "unable to upload file")
	}
	return resp.Header.Get(headerETag), nil
}
