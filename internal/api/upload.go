package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/wakeword-data/wakeword-data/internal/sample"
	"github.com/wakeword-data/wakeword-data/internal/schema"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

// AllowedContentTypes are the accepted upload media types.
var AllowedContentTypes = []string{"audio/webm", "audio/ogg", "audio/mp4", "audio/wav"}

// upload is a validated upload request.
type upload struct {
	contentType   string
	mediaType     string
	contentLength int64
	labels        *sample.Labels
}

// HandleUpload validates and stores one sample. Validation failures are
// written directly; storage failures are returned to the caller.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) error {
	up, err := h.parseUpload(r)
	if err != nil {
		if httpErr, ok := IsHTTPError(err); ok {
			writeHTTPError(w, methodsUpload, httpErr)
			return nil
		}
		return err
	}

	id := h.identifier(r)
	key := sample.Key(up.labels, id, sample.Extension(up.mediaType))

	h.logger.Info().
		Str("key", key).
		Str("wake_word", up.labels.WakeWord).
		Bool("negative", up.labels.Negative).
		Int64("content_length", up.contentLength).
		Msg("Storing sample")

	body := http.MaxBytesReader(w, r.Body, h.maxContentLength)
	obj, err := h.bucket.Put(r.Context(), key, body, storage.PutOptions{ContentType: up.contentType})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeHTTPError(w, methodsUpload, h.contentLengthError(strconv.FormatInt(up.contentLength, 10)))
			return nil
		}
		return fmt.Errorf("store sample %s: %w", key, err)
	}

	h.metrics.ObserveUpload(up.labels.WakeWord, up.labels.Negative, obj.Size)

	WriteJSON(w, http.StatusCreated, schema.UploadResponse{Message: "success", Key: key})
	return nil
}

// parseUpload runs the ordered upload checks. The first failure is returned
// as an *HTTPError.
func (h *Handler) parseUpload(r *http.Request) (*upload, error) {
	if r.Method != http.MethodPut {
		return nil, &HTTPError{Status: http.StatusMethodNotAllowed, Payload: errorBody("Invalid method")}
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, ok := allowedMediaType(contentType)
	if !ok {
		return nil, &HTTPError{
			Status: http.StatusUnsupportedMediaType,
			Payload: schema.ErrorResponse{
				Message:  "Invalid content type",
				Received: contentType,
				Allowed:  AllowedContentTypes,
			},
		}
	}

	rawLength := r.Header.Get("Content-Length")
	if rawLength == "" && r.ContentLength > 0 {
		rawLength = strconv.FormatInt(r.ContentLength, 10)
	}
	contentLength, err := strconv.ParseInt(rawLength, 10, 64)
	if err != nil || contentLength <= 0 || contentLength > h.maxContentLength {
		return nil, h.contentLengthError(rawLength)
	}

	labels, err := h.vocab.Parse(r.URL.Query())
	if err != nil {
		var verr *sample.ValidationError
		if errors.As(err, &verr) {
			return nil, &HTTPError{Status: http.StatusBadRequest, Payload: verr.Payload}
		}
		return nil, err
	}

	return &upload{
		contentType:   contentType,
		mediaType:     mediaType,
		contentLength: contentLength,
		labels:        labels,
	}, nil
}

func (h *Handler) contentLengthError(received string) *HTTPError {
	return &HTTPError{
		Status: http.StatusRequestEntityTooLarge,
		Payload: schema.ErrorResponse{
			Message:  "Invalid content length",
			Received: received,
			Allowed:  h.maxContentLength,
		},
	}
}

// allowedMediaType returns the base media type of contentType if it is
// accepted for upload.
func allowedMediaType(contentType string) (string, bool) {
	if contentType == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	for _, allowed := range AllowedContentTypes {
		if mediaType == allowed {
			return mediaType, true
		}
	}
	return "", false
}
