package api

import (
	"context"
	"net/http"

	"github.com/koustreak/selcdn/errs"
)

// Authenticate exchanges the credentials for a token and storage URL.
// It is a no-op once a token is held; the token is never refreshed.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}

	s, err := c.exchange(ctx)
	if err != nil {
		return err
	}
	c.session = s

	c.log.InfoWith("authenticated", map[string]interface{}{
		"storage_url": s.storageURL,
	})
	return nil
}

// exchange performs the authentication request. It never touches c.session.
func (c *Client) exchange(ctx context.Context) (*session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid authentication url", err)
	}
	req.Header.Set(HeaderAuthUser, c.username)
	req.Header.Set(HeaderAuthKey, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.ErrorWith("authentication request failed", err, map[string]interface{}{
			"auth_url": c.authURL,
		})
		return nil, err
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, &errs.Error{
			Kind:       errs.ErrKindAuthenticationFailed,
			StatusCode: resp.StatusCode,
			Message:    "given credentials are wrong",
		}
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, &errs.Error{
			Kind:       errs.ErrKindUnexpectedResponse,
			StatusCode: resp.StatusCode,
			Message:    "authentication endpoint returned an error",
		}
	}

	token := resp.Header.Get(HeaderAuthToken)
	if token == "" {
		return nil, &errs.Error{
			Kind:       errs.ErrKindAuthenticationFailed,
			StatusCode: resp.StatusCode,
			Message:    "given credentials are wrong",
		}
	}

	storageURL := resp.Header.Get(HeaderStorageURL)
	if storageURL == "" {
		return nil, &errs.Error{
			Kind:       errs.ErrKindUnexpectedResponse,
			StatusCode: resp.StatusCode,
			Message:    "storage url is missing",
		}
	}

	if expires := resp.Header.Get(HeaderExpireToken); expires != "" {
		c.log.DebugWith("token lifetime", map[string]interface{}{"expires_in": expires})
	}

	return &session{token: token, storageURL: storageURL}, nil
}
