package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kolah/speclens/internal/metrics"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testETag         = `"v1"`
	testLastModified = "Wed, 21 Oct 2015 07:28:00 GMT"
)

func newTestFetcher(opts FetcherOptions) *Fetcher {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFetcher(opts)
}

func specServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/openapi.json":
			if r.Header.Get("If-None-Match") == testETag || r.Header.Get("If-Modified-Since") == testLastModified {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", testETag)
			w.Header().Set("Last-Modified", testLastModified)
			_, _ = w.Write([]byte(minimalSpec))
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchExternal(t *testing.T) {
	srv, _ := specServer(t)

	result, err := newTestFetcher(FetcherOptions{}).FetchExternal(context.Background(), srv.URL+"/openapi.json")
	require.NoError(t, err)
	assert.Equal(t, minimalSpec, string(result.Data))
	assert.Equal(t, testETag, result.ETag)
	assert.Equal(t, testLastModified, result.LastModified)
}

func TestFetchExternalStatusError(t *testing.T) {
	srv, _ := specServer(t)

	_, err := newTestFetcher(FetcherOptions{}).FetchExternal(context.Background(), srv.URL+"/missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestCheckUpdate(t *testing.T) {
	srv, _ := specServer(t)
	reg := metrics.New()
	f := newTestFetcher(FetcherOptions{Metrics: reg})

	tests := []struct {
		name     string
		req      UpdateRequest
		expected *UpdateResult
	}{
		{
			name: "no validators means update",
			req:  UpdateRequest{URL: srv.URL + "/openapi.json"},
			expected: &UpdateResult{
				HasUpdate:       true,
				NewETag:         testETag,
				NewLastModified: testLastModified,
				Data:            []byte(minimalSpec),
			},
		},
		{
			name:     "matching etag is not modified",
			req:      UpdateRequest{URL: srv.URL + "/openapi.json", ETag: testETag},
			expected: &UpdateResult{NewETag: testETag},
		},
		{
			name: "matching last-modified retains both validators",
			req:  UpdateRequest{URL: srv.URL + "/openapi.json", ETag: `"stale"`, LastModified: testLastModified},
			expected: &UpdateResult{
				NewETag:         `"stale"`,
				NewLastModified: testLastModified,
			},
		},
		{
			name: "stale etag gets new validators",
			req:  UpdateRequest{URL: srv.URL + "/openapi.json", ETag: `"v0"`},
			expected: &UpdateResult{
				HasUpdate:       true,
				NewETag:         testETag,
				NewLastModified: testLastModified,
				Data:            []byte(minimalSpec),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.CheckUpdate(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.SpecFetches.WithLabelValues("check", "updated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.SpecFetches.WithLabelValues("check", "not_modified")))
}

func TestCheckUpdateRejectsOtherStatuses(t *testing.T) {
	srv, _ := specServer(t)

	_, err := newTestFetcher(FetcherOptions{}).CheckUpdate(context.Background(), UpdateRequest{URL: srv.URL + "/teapot"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTeapot, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "418")
}

func TestInvalidURLMakesNoRequest(t *testing.T) {
	srv, hits := specServer(t)
	f := newTestFetcher(FetcherOptions{})

	for _, raw := range []string{"", "not a url", "ftp://example.com/spec.json", "/relative/openapi.json", "http://"} {
		_, err := f.CheckUpdate(context.Background(), UpdateRequest{URL: raw})
		assert.ErrorIs(t, err, ErrInvalidURL, raw)

		_, err = f.FetchExternal(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
	assert.Zero(t, hits.Load())
	_ = srv
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestConnectionRefused(t *testing.T) {
	addr := closedAddr(t)

	_, err := newTestFetcher(FetcherOptions{}).CheckUpdate(context.Background(), UpdateRequest{URL: "http://" + addr + "/openapi.json"})
	require.Error(t, err)

	var perr *proxy.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, proxy.KindRefused, perr.Kind)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	addr := closedAddr(t)
	f := newTestFetcher(FetcherOptions{BreakerFailures: 2})
	url := "http://" + addr + "/openapi.json"

	for i := 0; i < 2; i++ {
		_, err := f.FetchExternal(context.Background(), url)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err := f.FetchExternal(context.Background(), url)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestStatusErrorsDoNotTripBreaker(t *testing.T) {
	srv, _ := specServer(t)
	f := newTestFetcher(FetcherOptions{BreakerFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := f.FetchExternal(context.Background(), srv.URL+"/missing")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
}
