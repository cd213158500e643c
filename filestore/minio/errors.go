package minio

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/selcdn/errs"
	minioErr "github.com/minio/minio-go/v7"
)

// mapError translates a MinIO SDK error into a *errs.Error so callers see
// the same kinds as from the Selectel driver.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var resp minioErr.ErrorResponse
	if errors.As(err, &resp) {
		e := classify(resp)
		if e != errs.ErrKindUnknown {
			return &errs.Error{Kind: e, Resource: resource(resp), StatusCode: resp.StatusCode, Message: msg, Cause: err}
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return &errs.Error{Kind: errs.ErrKindUnexpectedResponse, Resource: resource(resp), StatusCode: resp.StatusCode, Message: msg, Cause: err}
		}
	}

	// dial, TLS and read failures
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classify(resp minioErr.ErrorResponse) errs.ErrKind {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return errs.ErrKindNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return errs.ErrKindAuthenticationFailed
	case http.StatusBadRequest:
		return errs.ErrKindInvalidInput
	}

	// some gateways answer these codes with 409 or 503
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey", "NoSuchUpload":
		return errs.ErrKindNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errs.ErrKindAuthenticationFailed
	case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
		return errs.ErrKindInvalidInput
	case "RequestTimeout", "SlowDown":
		return errs.ErrKindTimeout
	}
	return errs.ErrKindUnknown
}

func resource(resp minioErr.ErrorResponse) string {
	if resp.Key != "" {
		return resp.BucketName + "/" + resp.Key
	}
	return resp.BucketName
}
