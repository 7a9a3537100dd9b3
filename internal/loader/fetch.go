package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kolah/speclens/internal/metrics"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFetchTimeout    = 30 * time.Second
	DefaultBreakerFailures = 5

	maxSpecSize = 50 * 1024 * 1024
)

type FetchResult struct {
	Data         []byte
	ETag         string
	LastModified string
}

// UpdateRequest carries the validators cached from the previous fetch.
type UpdateRequest struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// UpdateResult reports whether the remote document changed. On 304 the
// validators of the request are echoed back and Data is nil.
type UpdateResult struct {
	HasUpdate       bool
	NewETag         string
	NewLastModified string
	Data            []byte
}

type FetcherOptions struct {
	Client          *http.Client
	Timeout         time.Duration
	BreakerFailures uint32
	Logger          *slog.Logger
	Metrics         *metrics.Registry
}

// Fetcher downloads remote documents. Each host gets its own circuit
// breaker, and concurrent identical requests share one round trip.
type Fetcher struct {
	client   *http.Client
	failures uint32
	logger   *slog.Logger
	metrics  *metrics.Registry

	group singleflight.Group

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*fetched]
}

type fetched struct {
	status       int
	statusText   string
	etag         string
	lastModified string
	body         []byte
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultBreakerFailures
	}
	if opts.Client == nil {
		opts.Client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		client:   opts.Client,
		failures: opts.BreakerFailures,
		logger:   opts.Logger.With("component", "fetcher"),
		metrics:  opts.Metrics,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*fetched]),
	}
}

// FetchExternal downloads the document at rawURL.
func (f *Fetcher) FetchExternal(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		f.metrics.ObserveFetch("fetch", "invalid_url")
		return nil, err
	}

	res, err := f.get(ctx, u, nil)
	if err != nil {
		f.metrics.ObserveFetch("fetch", "error")
		return nil, err
	}
	if res.status != http.StatusOK {
		f.metrics.ObserveFetch("fetch", metrics.StatusClass(res.status))
		return nil, &StatusError{URL: u.String(), StatusCode: res.status, Status: res.statusText}
	}

	f.metrics.ObserveFetch("fetch", "ok")
	return &FetchResult{Data: res.body, ETag: res.etag, LastModified: res.lastModified}, nil
}

// CheckUpdate issues a conditional GET with the cached validators.
func (f *Fetcher) CheckUpdate(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	u, err := parseURL(req.URL)
	if err != nil {
		f.metrics.ObserveFetch("check", "invalid_url")
		return nil, err
	}

	header := http.Header{}
	if req.ETag != "" {
		header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != "" {
		header.Set("If-Modified-Since", req.LastModified)
	}

	res, err := f.get(ctx, u, header)
	if err != nil {
		f.metrics.ObserveFetch("check", "error")
		return nil, err
	}

	switch res.status {
	case http.StatusNotModified:
		f.metrics.ObserveFetch("check", "not_modified")
		return &UpdateResult{NewETag: req.ETag, NewLastModified: req.LastModified}, nil
	case http.StatusOK:
		f.metrics.ObserveFetch("check", "updated")
		return &UpdateResult{
			HasUpdate:       true,
			NewETag:         res.etag,
			NewLastModified: res.lastModified,
			Data:            res.body,
		}, nil
	}
	f.metrics.ObserveFetch("check", metrics.StatusClass(res.status))
	return nil, &StatusError{URL: u.String(), StatusCode: res.status, Status: res.statusText}
}

func (f *Fetcher) get(ctx context.Context, u *url.URL, header http.Header) (*fetched, error) {
	key := u.String() + "|" + header.Get("If-None-Match") + "|" + header.Get("If-Modified-Since")
	v, err, shared := f.group.Do(key, func() (any, error) {
		return f.breaker(u.Host).Execute(func() (*fetched, error) {
			return f.roundTrip(ctx, u, header)
		})
	})
	if shared {
		f.logger.Debug("shared in-flight fetch", "url", u.Redacted())
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("fetching %s: too many recent failures, retry later: %w", u.Redacted(), err)
		}
		return nil, err
	}
	return v.(*fetched), nil
}

// roundTrip only fails for transport problems; every HTTP status is a
// result so that 4xx answers do not trip the breaker.
func (f *Fetcher) roundTrip(ctx context.Context, u *url.URL, header http.Header) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.8")

	f.logger.Debug("fetching spec", "url", u.Redacted(), "conditional", len(header) > 0)
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("spec fetch failed", "url", u.Redacted(), "error", err)
		return nil, proxy.Classify(err, u.String())
	}
	defer resp.Body.Close()

	res := &fetched{
		status:       resp.StatusCode,
		statusText:   resp.Status,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode != http.StatusOK {
		return res, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u.Redacted(), err)
	}
	if len(body) > maxSpecSize {
		return nil, fmt.Errorf("spec at %s exceeds %d bytes", u.Redacted(), maxSpecSize)
	}
	res.body = body
	return res, nil
}

func (f *Fetcher) breaker(host string) *gobreaker.CircuitBreaker[*fetched] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	failures := f.failures
	cb := gobreaker.NewCircuitBreaker[*fetched](gobreaker.Settings{
		Name:    "spec-fetch " + host,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	f.breakers[host] = cb
	return cb
}

func parseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}
