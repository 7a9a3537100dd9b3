package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// Kind classifies a failed outbound request.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindRefused   Kind = "refused"
	KindDNS       Kind = "dns"
	KindInvalid   Kind = "invalid_request"
	KindTransport Kind = "transport"
)

// Error is returned when no response could be obtained. The message names the
// failure class so callers can show it verbatim.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timed out"
	case KindRefused:
		return fmt.Sprintf("Failed to connect to %s: connection refused", hostOf(e.URL))
	case KindDNS:
		return fmt.Sprintf("Could not resolve host %s", hostOf(e.URL))
	case KindInvalid:
		return fmt.Sprintf("Invalid request: %v", e.Err)
	}
	return fmt.Sprintf("Request failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps err in an *Error with the matching Kind. An *Error is
// returned unchanged.
func Classify(err error, rawURL string) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	kind := KindTransport
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = KindRefused
	case errors.As(err, &dnsErr):
		kind = KindDNS
	}
	return &Error{Kind: kind, URL: rawURL, Err: err}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
