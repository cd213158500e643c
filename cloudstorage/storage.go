// Package cloudstorage provides typed accessors for Selectel Cloud Storage
// containers and files on top of an api.Client.
//
// Accessors are cheap: creating a Container sends nothing, and its
// attributes are fetched on first use and cached on the instance. Every
// call takes a context and returns *errs.Error values for refused
// operations, while transport failures are returned unchanged.
//
// Usage:
//
//	client := api.New("user", "password")
//	storage := cloudstorage.New(client)
//
//	container, err := storage.CreateContainer(ctx, "assets", cloudstorage.ContainerPublic)
//	if err != nil { ... }
//
//	etag, err := container.UploadFromString(ctx, "web/index.html", "<h1>Hello World!</h1>", nil)
//	files, err := container.Files().FromDirectory("web").Get(ctx)
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

// Storage is the root accessor of an account.
type Storage struct {
	api api.Requester
}

// New returns a Storage sending its requests through r.
func New(r api.Requester) *Storage {
	return &Storage{api: r}
}

// Containers lists up to limit containers (DefaultLimit when limit <= 0)
// starting after marker. The containers are keyed by name and already
// carry their listing attributes.
func (s *Storage) Containers(ctx context.Context, limit int, marker string) (*Collection[*Container], error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if marker != "" {
		params.Set("marker", marker)
	}

	resp, err := s.api.Request(ctx, http.MethodGet, "/", &api.Opts{Parameters: params})
	if err != nil {
		return nil, err
	}
	defer api.DrainBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Failed(errs.OpList, "", resp.StatusCode, "unable to list containers")
	}

	var records []ContainerInfo
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errs.Wrap(errs.ErrKindUnexpectedResponse, "failed to decode container listing", err)
	}

	out := NewCollection[*Container]()
	for i := range records {
		info := records[i]
		out.Set(info.Name, newContainer(s.api, info.Name, &info))
	}
	return out, nil
}

// Container returns an accessor for name without sending a request.
func (s *Storage) Container(name string) *Container {
	return newContainer(s.api, strings.Trim(name, "/"), nil)
}

// CreateContainer creates a container of type t. Creating a container that
// already exists fails.
func (s *Storage) CreateContainer(ctx context.Context, name string, t ContainerType) (*Container, error) {
	if !t.Valid() {
		return nil, errs.Invalid("unknown container type " + strconv.Quote(string(t)))
	}
	name = strings.Trim(name, "/")
	if name == "" {
		return nil, errs.Invalid("container name is required")
	}

	resp, err := s.api.Request(ctx, http.MethodPut, "/"+name, &api.Opts{
		Headers: http.Header{headerContainerType: {string(t)}},
	})
	if err != nil {
		return nil, err
	}
	defer api.DrainBody(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		return s.Container(name), nil
	case http.StatusAccepted:
		return nil, errs.Failed(errs.OpCreate, name, resp.StatusCode, "container already exists")
	default:
		return nil, errs.Failed(errs.OpCreate, name, resp.StatusCode, "unable to create container")
	}
}
