package storagetest

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type objectRecord struct {
	Name         string `json:"name,omitempty"`
	Bytes        int64  `json:"bytes,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	Hash         string `json:"hash,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Subdir       string `json:"subdir,omitempty"`
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	marker, prefix, delimiter := q.Get("marker"), q.Get("prefix"), q.Get("delimiter")
	path, hasPath := q.Get("path"), q.Has("path")
	limit := queryLimit(r)

	names := make([]string, 0, len(c.objects))
	for name := range c.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	records := []objectRecord{}
	seen := make(map[string]bool)
	for _, name := range names {
		if len(records) == limit {
			break
		}
		if marker != "" && name <= marker {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if hasPath && !inDirectory(name, path) {
			continue
		}
		if delimiter != "" {
			rest := strings.TrimPrefix(name, prefix)
			if i := strings.Index(rest, delimiter); i >= 0 {
				subdir := prefix + rest[:i+len(delimiter)]
				if !seen[subdir] {
					seen[subdir] = true
					records = append(records, objectRecord{Subdir: subdir})
				}
				continue
			}
		}
		o := c.objects[name]
		records = append(records, objectRecord{
			Name:         name,
			Bytes:        int64(len(o.data)),
			ContentType:  o.contentType,
			Hash:         o.etag,
			LastModified: o.modified.Format(lastModifiedLayout),
		})
	}
	writeJSON(w, records)
}

// inDirectory reports whether name sits directly inside dir.
func inDirectory(name, dir string) bool {
	dir = strings.Trim(dir, "/")
	i := strings.LastIndex(name, "/")
	if i < 0 {
		return dir == ""
	}
	return name[:i] == dir
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	o, ok := c.objects[objectName(r)]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	h := w.Header()
	h.Set("Content-Type", o.contentType)
	h.Set("Content-Length", strconv.Itoa(len(o.data)))
	h.Set("ETag", o.etag)
	h.Set("Last-Modified", o.modified.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		c.tx += int64(len(o.data))
		_, _ = w.Write(o.data)
	}
}

func (s *Server) putObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	name := objectName(r)

	if from := r.Header.Get("X-Copy-From"); from != "" {
		src, ok := s.lookup(from)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		c.objects[name] = newObject(src.data, src.contentType)
		w.Header().Set("X-Copied-From", from)
		w.Header().Set("ETag", src.etag)
		w.WriteHeader(http.StatusCreated)
		return
	}

	data, err := readAll(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	sum := md5.Sum(data)
	if etag := r.Header.Get("ETag"); etag != "" && etag != hex.EncodeToString(sum[:]) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	o := newObject(data, r.Header.Get("Content-Type"))
	c.objects[name] = o
	c.rx += int64(len(data))
	if s.UploadETag != "" {
		w.Header().Set("ETag", s.UploadETag)
	} else {
		w.Header().Set("ETag", o.etag)
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	name := objectName(r)
	if _, ok := c.objects[name]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(c.objects, name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) copyObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.lookup(chi.URLParam(r, "container") + "/" + objectName(r))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	dest := strings.TrimPrefix(r.Header.Get("Destination"), "/")
	containerName, name, found := strings.Cut(dest, "/")
	dst, ok := s.containers[containerName]
	if !found || !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	dst.objects[name] = newObject(src.data, src.contentType)
	w.WriteHeader(http.StatusCreated)
}

// lookup finds "container/object". Callers hold s.mu.
func (s *Server) lookup(full string) (*object, bool) {
	containerName, name, found := strings.Cut(strings.TrimPrefix(full, "/"), "/")
	if !found {
		return nil, false
	}
	c, ok := s.containers[containerName]
	if !ok {
		return nil, false
	}
	o, ok := c.objects[name]
	return o, ok
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func readAll(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(r.Body)
}

func newBody(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}
