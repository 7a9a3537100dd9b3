// Package proxy performs the outbound half of "try it out": it sends a
// prepared request, replays the shared cookie jar and normalizes whatever
// comes back. Every status code is a successful response.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize limits buffered bodies to 50MB.
	DefaultMaxResponseSize = 50 * 1024 * 1024
)

// Request is the relay input. Body is sent verbatim when it is a string or
// byte slice and JSON encoded otherwise.
type Request struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Body        any               `json:"body,omitempty"`
}

// Response is the normalized result of a proxied request.
type Response struct {
	Status     int                 `json:"status"`
	StatusText string              `json:"statusText"`
	Headers    map[string]string   `json:"headers"`
	Data       any                 `json:"data"`
	Duration   int64               `json:"duration"`
	Size       int64               `json:"size"`
	SetCookies []cookies.SetCookie `json:"setCookies"`
	Truncated  bool                `json:"truncated,omitempty"`
	Validation []string            `json:"validation,omitempty"`

	// Raw keeps the received body and header for callers that validate or
	// persist the exchange.
	Raw       []byte      `json:"-"`
	RawHeader http.Header `json:"-"`
}

type Options struct {
	// Jar is replayed on every request and updated from every response.
	Jar             http.CookieJar
	Timeout         time.Duration
	MaxResponseSize int64
	Transport       http.RoundTripper
	Logger          *slog.Logger
	Metrics         *metrics.Registry
}

type Proxy struct {
	client  *http.Client
	maxSize int64
	logger  *slog.Logger
	metrics *metrics.Registry
}

func New(opts Options) *Proxy {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = DefaultMaxResponseSize
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Proxy{
		client: &http.Client{
			Transport: otelhttp.NewTransport(opts.Transport),
			Timeout:   opts.Timeout,
			Jar:       opts.Jar,
		},
		maxSize: opts.MaxResponseSize,
		logger:  opts.Logger.With("component", "proxy"),
		metrics: opts.Metrics,
	}
}

// Do sends r. Errors are always *Error; a response that arrives together
// with a transport error is returned as a normal response.
func (p *Proxy) Do(ctx context.Context, r Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}

	req, err := p.build(ctx, method, r)
	if err != nil {
		p.metrics.ObserveProxy(method, string(KindInvalid), 0)
		return nil, &Error{Kind: KindInvalid, URL: r.URL, Err: err}
	}

	p.logger.Debug("sending request", "method", method, "url", req.URL.Redacted())

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil && resp == nil {
		perr := Classify(err, r.URL)
		p.metrics.ObserveProxy(method, string(perr.Kind), elapsed)
		p.logger.Warn("request failed", "method", method, "url", req.URL.Redacted(), "kind", perr.Kind, "error", err)
		return nil, perr
	}
	defer resp.Body.Close()
	if err != nil {
		p.logger.Debug("passing through response returned with error", "status", resp.StatusCode, "error", err)
	}

	out, err := p.normalize(resp, elapsed)
	if err != nil {
		perr := Classify(err, r.URL)
		p.metrics.ObserveProxy(method, string(perr.Kind), elapsed)
		return nil, perr
	}

	p.metrics.ObserveProxy(method, metrics.StatusClass(out.Status), elapsed)
	p.logger.Info("request completed",
		"method", method,
		"url", req.URL.Redacted(),
		"status", out.Status,
		"duration_ms", out.Duration,
		"size", out.Size,
	)
	return out, nil
}

func (p *Proxy) build(ctx context.Context, method string, r Request) (*http.Request, error) {
	u, err := validateURL(r.URL)
	if err != nil {
		return nil, err
	}
	if len(r.QueryParams) > 0 {
		q := u.Query()
		for k, v := range r.QueryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	body, isJSON, err := encodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// encodeBody reports whether the encoded body is JSON produced here, so a
// caller supplied string keeps whatever Content-Type the caller chose.
func encodeBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case string:
		if b == "" {
			return nil, false, nil
		}
		return []byte(b), json.Valid([]byte(b)), nil
	case []byte:
		if len(b) == 0 {
			return nil, false, nil
		}
		return b, json.Valid(b), nil
	case json.RawMessage:
		return b, true, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("encoding body: %w", err)
	}
	return data, true, nil
}

func (p *Proxy) normalize(resp *http.Response, elapsed time.Duration) (*Response, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	truncated := int64(len(raw)) > p.maxSize
	if truncated {
		raw = raw[:p.maxSize]
		p.logger.Warn("response body truncated", "limit", p.maxSize)
	}

	size := resp.ContentLength
	if size < 0 {
		size = int64(len(raw))
	}

	return &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    FlattenHeaders(resp.Header),
		Data:       DecodeData(raw),
		Duration:   elapsed.Milliseconds(),
		Size:       size,
		SetCookies: cookies.ParseAll(resp.Header),
		Truncated:  truncated,
		Raw:        raw,
		RawHeader:  resp.Header.Clone(),
	}, nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

// FlattenHeaders lowercases names and joins repeated values with ", ".
func FlattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, values := range h {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(k)] = strings.Join(values, ", ")
	}
	return out
}

// DecodeData returns the body as a JSON value when it parses, otherwise as a
// string.
func DecodeData(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return string(raw)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
	"metadata.goog":            true,
	"100.100.100.200":          true,
	"169.254.170.2":            true,
}

func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q (only http and https are allowed)", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a hostname")
	}
	if metadataHosts[strings.ToLower(u.Hostname())] {
		return nil, fmt.Errorf("blocked request to cloud metadata endpoint %s", u.Hostname())
	}
	return u, nil
}
