package swift

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/selcdn/errs"
	ncw "github.com/ncw/swift/v2"
)

// mapError translates a Swift client error into a *errs.Error.
func mapError(err error, msg, resource string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errs.Error{Kind: errs.ErrKindTimeout, Resource: resource, Message: msg, Cause: err}
	}

	var serr *ncw.Error
	if !errors.As(err, &serr) {
		return &errs.Error{Kind: errs.ErrKindConnectionFailed, Resource: resource, Message: msg, Cause: err}
	}

	kind := errs.ErrKindUnexpectedResponse
	switch serr.StatusCode {
	case http.StatusNotFound:
		kind = errs.ErrKindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = errs.ErrKindAuthenticationFailed
	case http.StatusBadRequest:
		kind = errs.ErrKindInvalidInput
	case http.StatusConflict, http.StatusUnprocessableEntity:
		kind = errs.ErrKindOperationFailed
	case http.StatusRequestTimeout:
		kind = errs.ErrKindTimeout
	}
	return &errs.Error{Kind: kind, Resource: resource, StatusCode: serr.StatusCode, Message: msg, Cause: err}
}
