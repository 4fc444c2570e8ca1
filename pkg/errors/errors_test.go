package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	cause := stderrors.New("connection reset")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", New(ErrorTypeConfig, "no known endpoints in %q", "XX"), `config error: no known endpoints in "XX"`},
		{"wrapped", Wrap(ErrorTypeNetwork, cause, "fetch failed"), "network error: fetch failed: connection reset"},
		{
			"with code and endpoint",
			&Error{Type: ErrorTypeServerError, Message: "bad gateway", Code: 502, Endpoint: "ZH"},
			"server_error error (code 502): ZH: bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestTypeOfThroughWrapping(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("flush ZH: %w", Wrap(ErrorTypeStorage, cause, "write batch"))

	assert.Equal(t, ErrorTypeStorage, TypeOf(err))
	assert.True(t, Is(err, ErrorTypeStorage))
	assert.False(t, Is(err, ErrorTypeNetwork))
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, ErrorTypeUnknown, TypeOf(cause))
	assert.False(t, Is(nil, ErrorTypeUnknown))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeFormat))
}

func TestTypeForStatus(t *testing.T) {
	cases := map[int]ErrorType{
		0:   ErrorTypeNetwork,
		401: ErrorTypeAuth,
		403: ErrorTypeAuth,
		404: ErrorTypeNotFound,
		429: ErrorTypeRateLimit,
		500: ErrorTypeServerError,
		503: ErrorTypeServerError,
		418: ErrorTypeUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, TypeForStatus(code), "status %d", code)
	}
}
