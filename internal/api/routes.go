package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Route paths. Matching is exact and case-sensitive.
const (
	UploadPath   = "/assist/wake_word/training_data/upload"
	ListPath     = "/assist/wake_word/training_data/list"
	DownloadPath = "/assist/wake_word/training_data/download"
)

// NewRouter constructs the HTTP router with middleware and routes.
// Routes accept every method; the upload handler rejects non-PUT requests itself.
func NewRouter(h *Handler, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(h.metrics.Middleware)
	r.Use(CORSMiddleware)

	r.HandleFunc(UploadPath, ErrorHandler(logger, h.HandleUpload))
	r.HandleFunc(ListPath, h.HandleList)
	r.HandleFunc(DownloadPath, h.HandleDownload)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusNotFound, "Not Found")
	})

	return r
}
