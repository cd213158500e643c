// Package api implements the authenticated request pipeline for Selectel
// Cloud Storage.
//
// A Client holds the credentials, performs the token exchange against the
// authentication endpoint on first use and then dispatches every storage
// call with the token attached. Responses are handed back whatever their
// status code: callers branch on resp.StatusCode. Only failures that never
// produced an HTTP response (DNS, refused connection, cancelled context) are
// returned as errors.
//
// Usage:
//
//	client := api.New("user", "password")
//	resp, err := client.Request(ctx, http.MethodHead, "/container1", nil)
//	if err != nil { ... }
//	defer resp.Body.Close()
package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/selcdn/errs"
	"github.com/koustreak/selcdn/logger"
)

// AuthURL is the default authentication endpoint.
const AuthURL = "https://auth.selcdn.ru"

// Header names used by the authentication exchange.
const (
	HeaderAuthUser    = "X-Auth-User"
	HeaderAuthKey     = "X-Auth-Key"
	HeaderAuthToken   = "X-Auth-Token"
	HeaderStorageURL  = "X-Storage-Url"
	HeaderExpireToken = "X-Expire-Auth-Token"
)

// Requester is what the storage accessors need from a Client.
type Requester interface {
	// Request sends an authenticated call. See Client.Request.
	Request(ctx context.Context, method, path string, opts *Opts) (*http.Response, error)

	// StorageURL returns the storage root, "" before authentication.
	StorageURL() string
}

// Opts carries the optional parts of a request.
type Opts struct {
	Headers       http.Header
	Parameters    url.Values // merged with format=json
	Body          io.Reader
	ContentLength *int64 // set to force a length; 0 sends an empty body
}

// Client authenticates lazily and dispatches storage requests.
// It is safe for concurrent use.
type Client struct {
	username string
	password string
	authURL  string
	http     *http.Client
	log      *logger.Logger

	mu      sync.Mutex
	session *session
}

// session is the result of a successful token exchange. Token and storage
// URL live in one value so they are always set together.
type session struct {
	token      string
	storageURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAuthURL points the client at another authentication endpoint.
func WithAuthURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.authURL = u
		}
	}
}

// WithLogger makes the client log authentication and requests to l.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client for the given credentials. No request is sent until
// the first call.
func New(username, password string, opts ...Option) *Client {
	c := &Client{
		username: username,
		password: password,
		authURL:  AuthURL,
		http:     http.DefaultClient,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("user", username).Logger()
	return c
}

// Token returns the current auth token, "" before authentication.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.token
}

// StorageURL returns the storage root, "" before authentication.
func (c *Client) StorageURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.storageURL
}

// Authenticated reports whether a token is held.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Request sends method to path (relative to the storage URL, or absolute)
// with the auth token and format=json added. The response is returned for
// every HTTP status; the caller must close its body.
//
// A logger attached to ctx with logger.WithContext replaces the client's
// logger for this call.
func (c *Client) Request(ctx context.Context, method, path string, opts *Opts) (*http.Response, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	token, root := c.session.token, c.session.storageURL
	c.mu.Unlock()

	target, err := resolve(root, path, opts.Parameters)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid request path", err)
	}

	body := opts.Body
	if opts.ContentLength != nil && *opts.ContentLength == 0 {
		body = nil
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to build request", err)
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(HeaderAuthToken, token)
	if opts.ContentLength != nil {
		req.ContentLength = *opts.ContentLength
	}

	log := logger.FromContext(ctx, c.log)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.ErrorWith("request failed", err, map[string]interface{}{
			"method": method,
			"path":   path,
		})
		return nil, err
	}

	log.DebugWith("request", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	return resp, nil
}

// resolve joins path onto root and encodes the query with format=json.
// Absolute http(s) paths replace root entirely.
func resolve(root, path string, params url.Values) (string, error) {
	var (
		u   *url.URL
		err error
	)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err = url.Parse(path)
	} else {
		u, err = url.Parse(root)
		if err == nil {
			u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
			u.RawPath = ""
		}
	}
	if err != nil {
		return "", err
	}

	query := u.Query()
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	query.Set("format", "json")
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// drain discards the rest of body and closes it so the connection can be
// reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// DrainBody discards and closes resp.Body. Accessors use it on responses
// whose body carries nothing of interest.
func DrainBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		drain(resp.Body)
	}
}

var _ Requester = (*Client)(nil)
