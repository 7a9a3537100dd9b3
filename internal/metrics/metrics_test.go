package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveProxy(t *testing.T) {
	r := New()

	r.ObserveProxy(http.MethodGet, "2xx", 10*time.Millisecond)
	r.ObserveProxy(http.MethodGet, "2xx", 20*time.Millisecond)
	r.ObserveProxy(http.MethodPost, "timeout", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ProxyRequests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ProxyRequests.WithLabelValues("POST", "timeout")))
}

func TestObserveFetch(t *testing.T) {
	r := New()
	r.ObserveFetch("check", "not_modified")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SpecFetches.WithLabelValues("check", "not_modified")))
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveProxy("GET", "2xx", time.Millisecond)
		r.ObserveFetch("fetch", "ok")
	})
	assert.Nil(t, r.Prometheus())
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveFetch("fetch", "ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "speclens_spec_fetches_total")
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{304, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{0, "other"},
		{700, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StatusClass(tt.status))
	}
}
