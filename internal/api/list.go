package api

import (
	"net/http"
	"strconv"

	"github.com/wakeword-data/wakeword-data/internal/schema"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

// UploadedLayout formats object upload times in listings.
const UploadedLayout = "2006-01-02T15:04:05.000Z"

// HandleList returns one page of stored samples. An optional delimiter groups
// keys sharing the text up to it into delimitedPrefixes.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = storage.MaxListLimit
	}

	result, err := h.bucket.List(r.Context(), storage.ListOptions{
		Prefix:    q.Get("prefix"),
		Cursor:    q.Get("cursor"),
		Delimiter: q.Get("delimiter"),
		Limit:     storage.ClampLimit(limit),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list samples")
		writeJSON(w, http.StatusInternalServerError, methodsRead, schema.ErrorResponse{
			Message: "Error listing files",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, methodsRead, listResponse(result))
}

func listResponse(result *storage.ListResult) schema.ListResponse {
	resp := schema.ListResponse{
		Objects:           make([]schema.ObjectSummary, 0, len(result.Objects)),
		Truncated:         result.Truncated,
		DelimitedPrefixes: result.DelimitedPrefixes,
	}
	if result.Truncated {
		resp.Cursor = result.Cursor
	}
	if resp.DelimitedPrefixes == nil {
		resp.DelimitedPrefixes = []string{}
	}
	for _, obj := range result.Objects {
		resp.Objects = append(resp.Objects, objectSummary(obj))
	}
	return resp
}

func objectSummary(obj storage.Object) schema.ObjectSummary {
	return schema.ObjectSummary{
		Key:          obj.Key,
		Size:         obj.Size,
		Uploaded:     obj.Uploaded.UTC().Format(UploadedLayout),
		HTTPMetadata: schema.HTTPMetadata{ContentType: obj.HTTPMetadata.ContentType},
	}
}
