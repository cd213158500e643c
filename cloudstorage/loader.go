package cloudstorage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/koustreak/selcdn/api"
	"github.com/koustreak/selcdn/errs"
)

// DefaultLimit is the page size used when no limit is given.
const DefaultLimit = 10000

// listParams are the filters of one listing request.
type listParams struct {
	limit     int
	marker    string
	path      string
	prefix    string
	delimiter string
}

// FilesLoader builds a file listing request. Filters are set with the
// chainable methods and sent by Get or GetFiles:
//
//	files, err := container.Files().
//		FromDirectory("/images").
//		WithPrefix("IMG_").
//		Limit(100, "").
//		Get(ctx)
//
// Only one page is fetched per call; pass the last Filename as the marker
// of the next request to continue.
type FilesLoader struct {
	api       api.Requester
	container string
	url       string
	params    listParams
}

func newFilesLoader(r api.Requester, container, containerURL string) *FilesLoader {
	return &FilesLoader{
		api:       r,
		container: container,
		url:       containerURL,
		params:    listParams{limit: DefaultLimit},
	}
}

// FromDirectory restricts the listing to the direct children of dir.
func (l *FilesLoader) FromDirectory(dir string) *FilesLoader {
	l.params.path = strings.TrimLeft(dir, "/")
	return l
}

// WithPrefix restricts the listing to names starting with prefix. Inside a
// directory, prefix is relative to it.
func (l *FilesLoader) WithPrefix(prefix string) *FilesLoader {
	l.params.prefix = strings.TrimLeft(prefix, "/")
	return l
}

// WithDelimiter groups names by delimiter into subdir records.
func (l *FilesLoader) WithDelimiter(delimiter string) *FilesLoader {
	l.params.delimiter = delimiter
	return l
}

// Limit sets the page size and the name to start after. Inside a
// directory, marker may be given relative to it.
func (l *FilesLoader) Limit(limit int, marker string) *FilesLoader {
	l.params.limit = limit
	l.params.marker = marker
	return l
}

// buildParams composes the query. The builder itself is left unchanged.
func (l *FilesLoader) buildParams() url.Values {
	p := l.params

	if p.marker != "" && p.path != "" {
		p.marker = p.path + "/" + strings.TrimLeft(p.marker, "/")
	}
	if p.prefix != "" && p.path != "" {
		p.prefix = p.path + "/" + p.prefix
		p.path = ""
	}

	limit := p.limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	for k, v := range map[string]string{
		"marker":    p.marker,
		"path":      p.path,
		"prefix":    p.prefix,
		"delimiter": p.delimiter,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func (l *FilesLoader) list(ctx context.Context) ([]FileInfo, error) {
	resp, err := l.api.Request(ctx, http.MethodGet, l.url, &api.Opts{Parameters: l.buildParams()})
	if err != nil {
		return nil, err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Failed(errs.OpList, l.container, resp.StatusCode, "unable to list container files")
	}

	var records []FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errs.Wrap(errs.ErrKindUnexpectedResponse, "failed to decode file listing", err)
	}
	for i := range records {
		if records[i].Name != "" {
			_, records[i].Filename = splitPath(records[i].Name)
		}
	}
	return records, nil
}

// Get sends the request and returns the records keyed by name. Subdir
// records of a delimiter listing are keyed by their Subdir.
func (l *FilesLoader) Get(ctx context.Context) (*Collection[FileInfo], error) {
	records, err := l.list(ctx)
	if err != nil {
		return nil, err
	}
	out := NewCollection[FileInfo]()
	for _, r := range records {
		out.Set(r.key(), r)
	}
	return out, nil
}

// GetFiles is Get returning File handles. Subdir records are skipped.
func (l *FilesLoader) GetFiles(ctx context.Context) (*Collection[*File], error) {
	records, err := l.list(ctx)
	if err != nil {
		return nil, err
	}
	out := NewCollection[*File]()
	for _, r := range records {
		if r.Name == "" {
			continue
		}
		out.Set(r.Name, newFile(l.api, l.container, l.url, r))
	}
	return out, nil
}

// All clears every filter and returns up to DefaultLimit records.
func (l *FilesLoader) All(ctx context.Context) (*Collection[FileInfo], error) {
	return l.FromDirectory("").
		WithPrefix("").
		WithDelimiter("").
		Limit(DefaultLimit, "").
		Get(ctx)
}

// Exists reports whether a file exists at path. A listing refused by the
// server counts as a miss; other errors are returned.
func (l *FilesLoader) Exists(ctx context.Context, path string) (bool, error) {
	info, err := l.findFileAt(ctx, path)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// Find returns the file at path, or a NotFound error.
func (l *FilesLoader) Find(ctx context.Context, path string) (*File, error) {
	info, err := l.findFileAt(ctx, path)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errs.NotFound(path, 0, "file was not found")
	}
	return newFile(l.api, l.container, l.url, *info), nil
}

// findFileAt lists one record with path as prefix and keeps it only on an
// exact name match. The filters set on l are not touched.
func (l *FilesLoader) findFileAt(ctx context.Context, path string) (*FileInfo, error) {
	lookup := newFilesLoader(l.api, l.container, l.url)
	records, err := lookup.WithPrefix(path).Limit(1, "").list(ctx)
	if err != nil {
		if errs.OpOf(err) == errs.OpList {
			return nil, nil
		}
		return nil, err
	}
	if len(records) == 0 || records[0].Name != strings.TrimLeft(path, "/") {
		return nil, nil
	}
	return &records[0], nil
}
