// Package errs provides the unified error type used across selcdn.
//
// Every layer (api, cloudstorage, filestore drivers) reports failures as
// *errs.Error. Callers use the Is* predicates to branch on the kind of
// failure without parsing messages or status codes.
//
// Usage:
//
//	// In an accessor, report an unexpected status:
//	return errs.Failed(errs.OpDelete, name, resp.StatusCode, "unable to delete container")
//
//	// In caller code, check the error kind:
//	if errs.IsNotFound(err) {
//	    // create it
//	}
//
// The api and cloudstorage packages never wrap transport failures such as
// refused connections: they reach the caller exactly as net/http returned
// them. The swift and minio drivers of filestore map them onto
// ErrKindTimeout and ErrKindConnectionFailed.
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing HTTP details.
type ErrKind int

const (
	ErrKindUnknown              ErrKind = iota
	ErrKindAuthenticationFailed         // credentials rejected by the auth endpoint
	ErrKindUnexpectedResponse           // server answered, but not in the documented shape
	ErrKindNotFound                     // container, file or metadata lookup missed
	ErrKindOperationFailed              // mutation answered with an unexpected status
	ErrKindInvalidInput                 // client-side validation failure
	ErrKindDeletedResource              // access to a file already deleted through this handle
	ErrKindTimeout                      // context deadline or cancellation (SDK drivers)
	ErrKindConnectionFailed             // backend unreachable (SDK drivers)
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindAuthenticationFailed:
		return "authentication_failed"
	case ErrKindUnexpectedResponse:
		return "unexpected_response"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindOperationFailed:
		return "operation_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindDeletedResource:
		return "deleted_resource"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindConnectionFailed:
		return "connection_failed"
	default:
		return "unknown"
	}
}

// Op names the remote operation an ErrKindOperationFailed error belongs to.
type Op string

const (
	OpNone    Op = ""
	OpCreate  Op = "create"
	OpDelete  Op = "delete"
	OpUpload  Op = "upload"
	OpRename  Op = "rename"
	OpCopy    Op = "copy"
	OpSetType Op = "set-type"
	OpSetMeta Op = "set-meta"
	OpList    Op = "list"
	OpRead    Op = "read"
)

// Error is the single error type returned by selcdn packages.
type Error struct {
	Kind ErrKind

	// Op is set for ErrKindOperationFailed.
	Op Op

	// Resource is the container name or file path the error is about, if any.
	Resource string

	// StatusCode is the HTTP status that triggered the error, 0 if none.
	StatusCode int

	Message string
	Cause   error // underlying error, preserved for logging
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Op != OpNone {
		msg = fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(" (%q)", e.Resource)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Failed reports that op on resource was answered with an unexpected status.
func Failed(op Op, resource string, status int, msg string) *Error {
	return &Error{
		Kind:       ErrKindOperationFailed,
		Op:         op,
		Resource:   resource,
		StatusCode: status,
		Message:    msg,
	}
}

// NotFound reports a missed lookup of resource.
func NotFound(resource string, status int, msg string) *Error {
	return &Error{Kind: ErrKindNotFound, Resource: resource, StatusCode: status, Message: msg}
}

// Invalid reports a client-side validation failure.
func Invalid(msg string) *Error {
	return &Error{Kind: ErrKindInvalidInput, Message: msg}
}

// Deleted reports access to a file handle that was already deleted.
func Deleted(resource string) *Error {
	return &Error{Kind: ErrKindDeletedResource, Resource: resource, Message: "file was deleted recently"}
}

// --- Predicates ---

// IsAuthenticationFailed reports whether err means the credentials were rejected.
func IsAuthenticationFailed(err error) bool {
	return kindOf(err) == ErrKindAuthenticationFailed
}

// IsUnexpectedResponse reports whether the server answered in an undocumented shape.
func IsUnexpectedResponse(err error) bool {
	return kindOf(err) == ErrKindUnexpectedResponse
}

// IsNotFound reports whether err represents a missing container, file or
// metadata entry.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsOperationFailed reports whether a mutation was refused by the server.
func IsOperationFailed(err error) bool {
	return kindOf(err) == ErrKindOperationFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsDeletedResource reports whether err comes from using a deleted file handle.
func IsDeletedResource(err error) bool {
	return kindOf(err) == ErrKindDeletedResource
}

// IsTimeout reports whether err is a timeout or cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether the backend could not be reached.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// OpOf returns the operation carried by err, or OpNone.
func OpOf(err error) Op {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return OpNone
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
