package api

import (
	"errors"
	"net/http"

	"github.com/wakeword-data/wakeword-data/internal/schema"
)

// HTTPError is a request rejection carrying its status and response body.
type HTTPError struct {
	Status  int
	Payload schema.ErrorResponse
}

func (e *HTTPError) Error() string {
	return e.Payload.Message
}

// IsHTTPError checks whether an error is an *HTTPError.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

func errorBody(message string) schema.ErrorResponse {
	return schema.ErrorResponse{Message: message}
}

func writeHTTPError(w http.ResponseWriter, methods string, err *HTTPError) {
	writeJSON(w, err.Status, methods, err.Payload)
}
