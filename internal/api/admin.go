package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wakeword-data/wakeword-data/internal/metrics"
	"github.com/wakeword-data/wakeword-data/internal/schema"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

const healthCheckTimeout = 2 * time.Second

// SamplesPath is the admin endpoint for inspecting and removing one sample.
const SamplesPath = "/samples"

// NewAdminRouter serves operational endpoints on a listener separate from the
// public API: /healthz probes the bucket, /samples inspects or removes a
// stored sample by key and /metrics exposes m.
func NewAdminRouter(bucket storage.Bucket, m *metrics.Metrics, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if _, err := bucket.List(ctx, storage.ListOptions{Limit: 1}); err != nil {
			logger.Warn().Err(err).Msg("Health check failed")
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		writeAdminJSON(w, code, schema.HealthResponse{Status: status})
	})

	r.Get(SamplesPath, func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			writeAdminJSON(w, http.StatusBadRequest, errorBody("Missing required parameter: key"))
			return
		}

		obj, err := bucket.Head(r.Context(), key)
		if err != nil {
			writeAdminError(w, logger, key, err)
			return
		}
		writeAdminJSON(w, http.StatusOK, schema.ObjectInfo{ObjectSummary: objectSummary(*obj), ETag: obj.ETag})
	})

	r.Delete(SamplesPath, func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			writeAdminJSON(w, http.StatusBadRequest, errorBody("Missing required parameter: key"))
			return
		}

		if err := bucket.Delete(r.Context(), key); err != nil {
			writeAdminError(w, logger, key, err)
			return
		}
		logger.Info().Str("key", key).Msg("Deleted sample")
		w.WriteHeader(http.StatusNoContent)
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}

func writeAdminError(w http.ResponseWriter, logger zerolog.Logger, key string, err error) {
	if storage.IsNotFound(err) || errors.Is(err, storage.ErrInvalidKey) {
		writeAdminJSON(w, http.StatusNotFound, errorBody("File not found: "+key))
		return
	}
	logger.Error().Err(err).Str("key", key).Msg("Sample operation failed")
	writeAdminJSON(w, http.StatusInternalServerError, schema.ErrorResponse{Message: "Storage error", Error: err.Error()})
}

func writeAdminJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
