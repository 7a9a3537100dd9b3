package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProxy(t *testing.T, opts Options) *Proxy {
	t.Helper()
	if opts.Jar == nil {
		jar, err := cookies.NewJar()
		require.NoError(t, err)
		opts.Jar = jar
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(opts)
}

func TestDoNormalizesJSONResponse(t *testing.T) {
	var gotQuery, gotAuth, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"name":"Rex"}`))
	}))
	defer srv.Close()

	p := newTestProxy(t, Options{})
	resp, err := p.Do(context.Background(), Request{
		URL:         srv.URL + "/pets?existing=1",
		Method:      "post",
		Headers:     map[string]string{"Authorization": "Bearer t"},
		QueryParams: map[string]string{"limit": "10"},
		Body:        map[string]any{"name": "Rex"},
	})
	require.NoError(t, err)

	assert.Equal(t, "existing=1&limit=10", gotQuery)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]any{"name": "Rex"}, gotBody)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "Created", resp.StatusText)
	assert.Equal(t, map[string]any{"id": float64(42), "name": "Rex"}, resp.Data)
	assert.Equal(t, "a, b", resp.Headers["x-multi"])
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	assert.Equal(t, int64(len(`{"id":42,"name":"Rex"}`)), resp.Size)
	assert.GreaterOrEqual(t, resp.Duration, int64(0))
	assert.Empty(t, resp.SetCookies)
}

func TestDoPassesErrorStatusThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such pet"))
	}))
	defer srv.Close()

	resp, err := newTestProxy(t, Options{}).Do(context.Background(), Request{URL: srv.URL, Method: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "no such pet", resp.Data)
}

func TestDoParsesEverySetCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "sid=abc; Path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "theme=dark; Secure")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := newTestProxy(t, Options{}).Do(context.Background(), Request{URL: srv.URL, Method: http.MethodGet})
	require.NoError(t, err)

	require.Len(t, resp.SetCookies, 2)
	assert.Equal(t, cookies.SetCookie{Name: "sid", Value: "abc", Path: "/", HTTPOnly: true}, resp.SetCookies[0])
	assert.Equal(t, cookies.SetCookie{Name: "theme", Value: "dark", Secure: true}, resp.SetCookies[1])
}

func TestDoReplaysJarAcrossRequests(t *testing.T) {
	var second string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
			return
		}
		second = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	p := newTestProxy(t, Options{})
	_, err := p.Do(context.Background(), Request{URL: srv.URL + "/login", Method: http.MethodPost})
	require.NoError(t, err)
	_, err = p.Do(context.Background(), Request{
		URL:     srv.URL + "/me",
		Method:  http.MethodGet,
		Headers: map[string]string{"Cookie": "custom=1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "custom=1; sid=abc", second)
}

func TestDoSendsStringBodyVerbatim(t *testing.T) {
	var body, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		contentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	_, err := newTestProxy(t, Options{}).Do(context.Background(), Request{
		URL:    srv.URL,
		Method: http.MethodPut,
		Body:   "plain text",
	})
	require.NoError(t, err)
	assert.Equal(t, "plain text", body)
	assert.Empty(t, contentType)
}

func TestDoSizeFallsBackToBodyLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("chunked body"))
	}))
	defer srv.Close()

	resp, err := newTestProxy(t, Options{}).Do(context.Background(), Request{URL: srv.URL, Method: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, int64(len("chunked body")), resp.Size)
}

func TestDoTruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	resp, err := newTestProxy(t, Options{MaxResponseSize: 4}).Do(context.Background(), Request{URL: srv.URL, Method: http.MethodGet})
	require.NoError(t, err)
	assert.True(t, resp.Truncated)
	assert.Equal(t, "0123", resp.Data)
}

func TestDoTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestProxy(t, Options{Timeout: 50 * time.Millisecond}).Do(context.Background(), Request{URL: srv.URL, Method: http.MethodGet})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindTimeout, perr.Kind)
	assert.Equal(t, "Request timed out", err.Error())
}

func TestDoConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = newTestProxy(t, Options{}).Do(context.Background(), Request{URL: "http://" + addr + "/", Method: http.MethodGet})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindRefused, perr.Kind)
	assert.Equal(t, "Failed to connect to "+addr+": connection refused", err.Error())
}

func TestDoRejectsInvalidURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "example.com/pets"},
		{"ftp", "ftp://example.com/file"},
		{"no host", "http:///pets"},
		{"metadata", "http://169.254.169.254/latest/meta-data"},
	}
	p := newTestProxy(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Do(context.Background(), Request{URL: tt.url, Method: http.MethodGet})
			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, KindInvalid, perr.Kind)
		})
	}
}

func TestDoRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	reg := metrics.New()
	_, err := newTestProxy(t, Options{Metrics: reg}).Do(context.Background(), Request{URL: srv.URL, Method: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ProxyRequests.WithLabelValues("GET", "4xx")))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}, KindDNS},
		{"other", errors.New("boom"), KindTransport},
		{"already classified", &Error{Kind: KindRefused}, KindRefused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.err, "http://nope.invalid").Kind)
		})
	}
	assert.Equal(t, "Could not resolve host nope.invalid", Classify(&net.DNSError{Name: "nope.invalid"}, "http://nope.invalid/x").Error())
}

func TestDecodeData(t *testing.T) {
	assert.Equal(t, []any{float64(1), "a"}, DecodeData([]byte(`[1,"a"]`)))
	assert.Equal(t, "<html/>", DecodeData([]byte("<html/>")))
	assert.Equal(t, "", DecodeData(nil))
}
