package schema

// ErrorResponse is the payload of every JSON error. Received and Allowed are
// set when the rejected value and the accepted vocabulary help the caller.
type ErrorResponse struct {
	Message  string      `json:"message"`
	Received interface{} `json:"received,omitempty"`
	Allowed  interface{} `json:"allowed,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response payload.
type HealthResponse struct {
	Status string `json:"status"`
}
