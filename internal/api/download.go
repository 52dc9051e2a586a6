package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/wakeword-data/wakeword-data/internal/schema"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

// HandleDownload streams a stored sample back as an attachment.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, methodsRead, errorBody("Missing required parameter: key"))
		return
	}

	obj, err := h.bucket.Get(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) || errors.Is(err, storage.ErrInvalidKey) {
			writeJSON(w, http.StatusNotFound, methodsRead, errorBody("File not found: "+key))
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to fetch sample")
		writeJSON(w, http.StatusInternalServerError, methodsRead, schema.ErrorResponse{
			Message: "Error downloading file",
			Error:   err.Error(),
		})
		return
	}
	defer obj.Body.Close()

	header := w.Header()
	SetCORSHeaders(header, methodsRead)
	header.Del("Content-Type")
	if obj.HTTPMetadata.ContentType != "" {
		header.Set("Content-Type", obj.HTTPMetadata.ContentType)
	}
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": obj.Key}))
	header.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("Sample download interrupted")
	}
}
