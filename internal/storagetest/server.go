// Package storagetest provides an in-memory fake of the Selectel
// authentication endpoint and storage API for tests.
//
// The fake keeps containers and objects in memory, records every storage
// request it receives and can be told to answer a given call with a fixed
// status code.
//
// Usage:
//
//	srv := storagetest.NewServer(t)
//	srv.PutContainer("container1", "public")
//	client := api.New(storagetest.Username, storagetest.Password, api.WithAuthURL(srv.AuthURL()))
package storagetest

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Credentials accepted by the fake authentication endpoint.
const (
	Username = "test"
	Password = "pass"
	Token    = "ec01a5f65efa70234bba6d86187173d5"

	// AccountPath is the storage root below the server URL.
	AccountPath = "/v1/SEL_22302"

	lastModifiedLayout = "2006-01-02T15:04:05.000000"
)

func init() {
	chi.RegisterMethod("COPY")
}

// Request is a storage call as seen by the fake.
type Request struct {
	Method        string
	Path          string // relative to the storage root, unescaped
	Query         url.Values
	Header        http.Header
	Body          []byte
	ContentLength int64
}

// Server is the fake. Zero-valued knobs mean "behave like the real API".
type Server struct {
	*httptest.Server

	// OmitToken makes authentication succeed without an X-Auth-Token header.
	OmitToken bool
	// OmitStorageURL makes authentication succeed without X-Storage-Url.
	OmitStorageURL bool
	// UploadETag, when set, is returned as the ETag of every stored upload
	// instead of the md5 of the content.
	UploadETag string

	mu         sync.Mutex
	containers map[string]*container
	requests   []Request
	authCalls  int
	overrides  map[string]int
}

type container struct {
	typ     string
	meta    map[string]string
	objects map[string]*object
	rx, tx  int64
}

type object struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
}

// NewServer starts a fake and registers its shutdown with t.
func NewServer(t testing.TB) *Server {
	s := &Server{
		containers: make(map[string]*container),
		overrides:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Get("/auth", s.handleAuth)
	r.Route(AccountPath, func(r chi.Router) {
		r.Use(s.record, s.checkToken, s.override)

		r.Get("/", s.listContainers)

		r.Get("/{container}", s.listObjects)
		r.Head("/{container}", s.headContainer)
		r.Put("/{container}", s.putContainer)
		r.Post("/{container}", s.postContainer)
		r.Delete("/{container}", s.deleteContainer)

		r.Get("/{container}/*", s.getObject)
		r.Head("/{container}/*", s.getObject)
		r.Put("/{container}/*", s.putObject)
		r.Delete("/{container}/*", s.deleteObject)
		r.MethodFunc("COPY", "/{container}/*", s.copyObject)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AuthURL is the fake authentication endpoint.
func (s *Server) AuthURL() string {
	return s.URL + "/auth"
}

// StorageURL is the storage root handed out on authentication.
func (s *Server) StorageURL() string {
	return s.URL + AccountPath
}

// Respond makes the fake answer method on path (relative to the storage
// root, e.g. "/container1") with status until cleared with status 0.
func (s *Server) Respond(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.overrides, key)
		return
	}
	s.overrides[key] = status
}

// Requests returns the storage calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent storage call.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// AuthCalls returns how many authentication requests were received.
func (s *Server) AuthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authCalls
}

// PutContainer seeds a container.
func (s *Server) PutContainer(name, typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[name] = newContainer(typ)
}

// PutObject seeds an object, creating its container if needed.
func (s *Server) PutObject(containerName, name string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerName]
	if !ok {
		c = newContainer("private")
		s.containers[containerName] = c
	}
	c.objects[name] = newObject(data, contentType)
}

// Object returns the stored content of an object.
func (s *Server) Object(containerName, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerName]
	if !ok {
		return nil, false
	}
	o, ok := c.objects[name]
	if !ok {
		return nil, false
	}
	return o.data, true
}

// ContainerMeta returns the type and user metadata of a container.
func (s *Server) ContainerMeta(name string) (string, map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[name]
	if !ok {
		return "", nil, false
	}
	meta := make(map[string]string, len(c.meta))
	for k, v := range c.meta {
		meta[k] = v
	}
	return c.typ, meta, true
}

func newContainer(typ string) *container {
	return &container{typ: typ, meta: make(map[string]string), objects: make(map[string]*object)}
}

func newObject(data []byte, contentType string) *object {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sum := md5.Sum(data)
	return &object{
		data:        data,
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		modified:    time.Now().UTC(),
	}
}

// --- middleware ---

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.authCalls++
	s.mu.Unlock()

	if r.Header.Get("X-Auth-User") != Username || r.Header.Get("X-Auth-Key") != Password {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("X-Expire-Auth-Token", "76134")
	if !s.OmitToken {
		w.Header().Set("X-Auth-Token", Token)
		w.Header().Set("X-Storage-Token", Token)
	}
	if !s.OmitStorageURL {
		w.Header().Set("X-Storage-Url", s.StorageURL())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := readAll(r)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          relPath(r),
			Query:         r.URL.Query(),
			Header:        r.Header.Clone(),
			Body:          body,
			ContentLength: r.ContentLength,
		})
		s.mu.Unlock()
		r.Body = newBody(body)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.overrides[r.Method+" "+relPath(r)]
		s.mu.Unlock()
		if ok {
			w.WriteHeader(status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func relPath(r *http.Request) string {
	p := strings.TrimPrefix(r.URL.Path, AccountPath)
	if p == "" {
		return "/"
	}
	return p
}

// objectName returns the unescaped wildcard part of an object route.
func objectName(r *http.Request) string {
	name := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// --- containers ---

type containerRecord struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Bytes   int64  `json:"bytes"`
	Type    string `json:"type"`
	RxBytes int64  `json:"rx_bytes"`
	TxBytes int64  `json:"tx_bytes"`
}

func (s *Server) listContainers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.containers))
	for name := range s.containers {
		names = append(names, name)
	}
	sort.Strings(names)

	marker := r.URL.Query().Get("marker")
	limit := queryLimit(r)

	records := []containerRecord{}
	for _, name := range names {
		if marker != "" && name <= marker {
			continue
		}
		if len(records) == limit {
			break
		}
		c := s.containers[name]
		records = append(records, containerRecord{
			Name:    name,
			Count:   len(c.objects),
			Bytes:   c.bytes(),
			Type:    c.typ,
			RxBytes: c.rx,
			TxBytes: c.tx,
		})
	}
	writeJSON(w, records)
}

func (s *Server) headContainer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h := w.Header()
	h.Set("X-Container-Meta-Type", c.typ)
	h.Set("X-Container-Object-Count", strconv.Itoa(len(c.objects)))
	h.Set("X-Container-Bytes-Used", strconv.FormatInt(c.bytes(), 10))
	h.Set("X-Received-Bytes", strconv.FormatInt(c.rx, 10))
	h.Set("X-Transfered-Bytes", strconv.FormatInt(c.tx, 10))
	for k, v := range c.meta {
		h.Set("X-Container-Meta-"+k, v)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putContainer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := chi.URLParam(r, "container")
	if _, ok := s.containers[name]; ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	typ := r.Header.Get("X-Container-Meta-Type")
	if typ == "" {
		typ = "private"
	}
	s.containers[name] = newContainer(typ)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) postContainer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[chi.URLParam(r, "container")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	const prefix = "X-Container-Meta-"
	for k := range r.Header {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		key := strings.TrimPrefix(k, prefix)
		if key == "Type" {
			c.typ = r.Header.Get(k)
			continue
		}
		c.meta[key] = r.Header.Get(k)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) deleteContainer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := chi.URLParam(r, "container")
	c, ok := s.containers[name]
	switch {
	case !ok:
		w.WriteHeader(http.StatusNotFound)
	case len(c.objects) > 0:
		w.WriteHeader(http.StatusConflict)
	default:
		delete(s.containers, name)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *container) bytes() int64 {
	var n int64
	for _, o := range c.objects {
		n += int64(len(o.data))
	}
	return n
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 10000
	}
	return limit
}
