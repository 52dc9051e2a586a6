package client

import (
	"errors"
	"fmt"
)

// ErrServerUnavailable indicates the server could not be reached.
var ErrServerUnavailable = errors.New("server unavailable")

// ErrServerTimeout indicates the server took too long to respond.
var ErrServerTimeout = errors.New("server timeout")

// ServerError is a non-success response from the server.
type ServerError struct {
	StatusCode int
	Message    string
	Received   interface{}
	Allowed    interface{}
}

func (e *ServerError) Error() string {
	if e.Received != nil {
		return fmt.Sprintf("server error (status %d): %s (received %v)", e.StatusCode, e.Message, e.Received)
	}
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// IsServerError checks if an error is a ServerError.
func IsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
