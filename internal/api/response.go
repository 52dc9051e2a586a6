package api

import (
	"encoding/json"
	"net/http"
)

// Allow-methods values advertised by the CORS headers.
const (
	methodsUpload = http.MethodPut
	methodsRead   = http.MethodGet
)

const jsonContentType = "application/json;charset=UTF-8"

// SetCORSHeaders applies the permissive cross-origin headers shared by every response.
func SetCORSHeaders(h http.Header, methods string) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", methods)
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// WriteJSON writes data as two-space indented JSON with the upload CORS headers.
// A bare string is encoded as a JSON string.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, methodsUpload, data)
}

// Respond writes content with the default error status, 400.
func Respond(w http.ResponseWriter, content interface{}) {
	WriteJSON(w, http.StatusBadRequest, content)
}

// WriteError writes {"message": message} with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorBody(message))
}

func writeJSON(w http.ResponseWriter, status int, methods string, data interface{}) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.MarshalIndent(errorBody("Error encoding response"), "", "  ")
	}

	SetCORSHeaders(w.Header(), methods)
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
