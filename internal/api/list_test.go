package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakeword-data/wakeword-data/internal/schema"
	"github.com/wakeword-data/wakeword-data/internal/storage"
)

func TestList_LimitClamping(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1000},
		{"limit=10", 10},
		{"limit=1", 1},
		{"limit=1000", 1000},
		{"limit=5000", 1000},
		{"limit=0", 1000},
		{"limit=-3", 1000},
		{"limit=many", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got storage.ListOptions
			router := newTestRouter(t, &fakeBucket{
				listFn: func(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
					got = opts
					return &storage.ListResult{}, nil
				},
			})

			rr := serve(router, httptest.NewRequest(http.MethodGet, ListPath+"?"+tt.query, nil))

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, got.Limit)
			assert.LessOrEqual(t, got.Limit, storage.MaxListLimit)
		})
	}
}

func TestList_ForwardsPrefixAndCursor(t *testing.T) {
	var got storage.ListOptions
	router := newTestRouter(t, &fakeBucket{
		listFn: func(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
			got = opts
			return &storage.ListResult{}, nil
		},
	})

	serve(router, httptest.NewRequest(http.MethodGet, ListPath+"?prefix=negative-&cursor=abc", nil))

	assert.Equal(t, "negative-", got.Prefix)
	assert.Equal(t, "abc", got.Cursor)
	assert.Empty(t, got.Delimiter)

	serve(router, httptest.NewRequest(http.MethodGet, ListPath+"?delimiter=-", nil))
	assert.Equal(t, "-", got.Delimiter)
}

func TestList_DelimiterGroupsKeys(t *testing.T) {
	bucket := storage.NewMemory()
	for _, key := range []string{
		"negative-hey_nabu-male-1.webm",
		"negative-okay_navi-female-2.webm",
		"okay_nabu-female-3.webm",
		"okay_nabu-male-4.webm",
	} {
		_, err := bucket.Put(context.Background(), key, strings.NewReader("x"), storage.PutOptions{ContentType: "audio/webm"})
		require.NoError(t, err)
	}
	router := newTestRouter(t, bucket)

	rr := serve(router, httptest.NewRequest(http.MethodGet, ListPath+"?delimiter=-", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var top schema.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	assert.Empty(t, top.Objects)
	assert.Equal(t, []string{"negative-", "okay_nabu-"}, top.DelimitedPrefixes)

	rr = serve(router, httptest.NewRequest(http.MethodGet, ListPath+"?prefix=negative-&delimiter=-", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var words schema.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &words))
	assert.Equal(t, []string{"negative-hey_nabu-", "negative-okay_navi-"}, words.DelimitedPrefixes)
}

func TestList_Response(t *testing.T) {
	uploaded := time.Date(2024, 3, 5, 14, 7, 9, 123456789, time.FixedZone("CET", 3600))
	router := newTestRouter(t, &fakeBucket{
		listFn: func(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
			return &storage.ListResult{
				Objects: []storage.Object{{
					Key:          "okay_nabu-female-ray.webm",
					Size:         42,
					Uploaded:     uploaded,
					HTTPMetadata: storage.HTTPMetadata{ContentType: "audio/webm"},
				}},
				Truncated: true,
				Cursor:    "next",
			}, nil
		},
	})

	rr := serve(router, httptest.NewRequest(http.MethodGet, ListPath, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assertCORS(t, rr, http.MethodGet)
	assert.Equal(t, jsonContentType, rr.Header().Get("Content-Type"))

	var resp schema.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Objects, 1)
	assert.Equal(t, schema.ObjectSummary{
		Key:          "okay_nabu-female-ray.webm",
		Size:         42,
		Uploaded:     "2024-03-05T13:07:09.123Z",
		HTTPMetadata: schema.HTTPMetadata{ContentType: "audio/webm"},
	}, resp.Objects[0])
	assert.True(t, resp.Truncated)
	assert.Equal(t, "next", resp.Cursor)
	assert.NotNil(t, resp.DelimitedPrefixes)
}

func TestList_EmptyResponseShape(t *testing.T) {
	router := newTestRouter(t, storage.NewMemory())

	rr := serve(router, httptest.NewRequest(http.MethodGet, ListPath, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "{\n  \"objects\": [],\n  \"truncated\": false,\n  \"delimitedPrefixes\": []\n}", rr.Body.String())
}

func TestList_BackendError(t *testing.T) {
	router := newTestRouter(t, &fakeBucket{})

	rr := serve(router, httptest.NewRequest(http.MethodGet, ListPath, nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assertCORS(t, rr, http.MethodGet)
	payload := decodeError(t, rr)
	assert.Equal(t, "Error listing files", payload["message"])
	assert.Equal(t, errBackend.Error(), payload["error"])
}

func TestList_InvalidCursor(t *testing.T) {
	router := newTestRouter(t, storage.NewMemory())

	rr := serve(router, httptest.NewRequest(http.MethodGet, ListPath+"?cursor=***", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Error listing files", decodeError(t, rr)["message"])
}
