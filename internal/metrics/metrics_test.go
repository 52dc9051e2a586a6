package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/upload", nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("201", "PUT")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}

func TestObserveUploadAndStorage(t *testing.T) {
	m := New()
	m.ObserveUpload("okay_nabu", false, 100)
	m.ObserveUpload("hey_nabu", true, 50)
	m.ObserveStorage("put", 100, nil, time.Millisecond)
	m.ObserveStorage("put", 0, errors.New("disk full"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("hey_nabu", "true")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOps.WithLabelValues("put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOps.WithLabelValues("put", "error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.storageBytes.WithLabelValues("put")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveUpload("okay_nabu", false, 1)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.True(t, strings.Contains(string(body), `wakeword_samples_uploads_total{negative="false",wake_word="okay_nabu"} 1`))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpload("okay_nabu", false, 1)
	m.ObserveStorage("get", 1, nil, time.Second)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}
