package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/wakeword-data/wakeword-data/internal/config"
	"github.com/wakeword-data/wakeword-data/internal/metrics"
	"github.com/wakeword-data/wakeword-data/internal/sample"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

// traceIDPattern bounds which trace header values may become part of a key.
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Handler serves the training data endpoints.
type Handler struct {
	bucket           storage.Bucket
	vocab            *sample.Vocabulary
	maxContentLength int64
	traceHeader      string
	newID            sample.IdentifierFunc
	metrics          *metrics.Metrics
	logger           zerolog.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics records accepted uploads in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithIdentifier replaces the fallback identifier generator.
func WithIdentifier(fn sample.IdentifierFunc) Option {
	return func(h *Handler) {
		h.newID = fn
	}
}

// NewHandler creates a new API handler.
func NewHandler(bucket storage.Bucket, vocab *sample.Vocabulary, cfg *config.Config, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		bucket:           bucket,
		vocab:            vocab,
		maxContentLength: cfg.Upload.MaxContentLength,
		traceHeader:      cfg.Upload.TraceHeader,
		newID:            sample.TimestampIdentifier(time.Now),
		logger:           logger,
	}
	if cfg.Upload.Identifier == config.IdentifierUUID {
		h.newID = sample.UUIDIdentifier
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandlerFunc is an http.HandlerFunc that may fail after validation.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorHandler adapts fn to net/http. Errors that escape fn are logged and
// answered with a generic 500.
func ErrorHandler(logger zerolog.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		if httpErr, ok := IsHTTPError(err); ok {
			writeHTTPError(w, methodsUpload, httpErr)
			return
		}

		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("Unhandled request error")
		WriteJSON(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// identifier returns the inbound trace id when usable, else a generated one.
func (h *Handler) identifier(r *http.Request) string {
	if h.traceHeader != "" {
		if id := r.Header.Get(h.traceHeader); traceIDPattern.MatchString(id) {
			return id
		}
	}
	return h.newID()
}
