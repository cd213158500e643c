package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"authentication", &Error{Kind: ErrKindAuthenticationFailed, StatusCode: http.StatusForbidden, Message: "bad credentials"}, IsAuthenticationFailed},
		{"unexpected", &Error{Kind: ErrKindUnexpectedResponse, StatusCode: http.StatusNoContent, Message: "storage url missing"}, IsUnexpectedResponse},
		{"not found", NotFound("c1", http.StatusNotFound, "missing"), IsNotFound},
		{"operation", Failed(OpUpload, "a.txt", http.StatusBadRequest, "upload"), IsOperationFailed},
		{"invalid", Invalid("bad name"), IsInvalidInput},
		{"deleted", Deleted("a.txt"), IsDeletedResource},
		{"timeout", Wrap(ErrKindTimeout, "list", errors.New("deadline")), IsTimeout},
		{"connection", Wrap(ErrKindConnectionFailed, "ping", errors.New("refused")), IsConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.True(t, tt.pred(fmt.Errorf("outer: %w", tt.err)), "predicate must see through wrapping")
		})
	}
}

func TestPredicates_ForeignError(t *testing.T) {
	err := errors.New("dial tcp: connection refused")

	assert.False(t, IsNotFound(err))
	assert.False(t, IsAuthenticationFailed(err))
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, OpNone, OpOf(err))
}

func TestError_Message(t *testing.T) {
	err := Failed(OpDelete, "container1", http.StatusConflict, "container must be empty")

	assert.Equal(t, `[operation_failed:delete] container must be empty ("container1") status=409`, err.Error())
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.Equal(t, OpDelete, OpOf(err))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("eof")
	err := Wrap(ErrKindUnexpectedResponse, "decode listing", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[unexpected_response] decode listing: eof", err.Error())
}
