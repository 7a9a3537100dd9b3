// Package cookies covers the cookie concerns of the relay: parsing Set-Cookie
// headers, the process-wide jar replayed on proxied requests, user declared
// custom cookies and the session cookies captured from responses.
package cookies

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SetCookie is one parsed Set-Cookie header. Expires keeps the raw attribute
// text; use ExpiresAt for the parsed instant.
type SetCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  string `json:"expires,omitempty"`
	MaxAge   *int   `json:"maxAge,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

// ParseSetCookie splits header on ";" and matches the known attribute names
// case-insensitively. Unknown attributes are ignored. ok is false when the
// header has no cookie name.
func ParseSetCookie(header string) (SetCookie, bool) {
	parts := strings.Split(header, ";")
	name, value, _ := strings.Cut(parts[0], "=")
	c := SetCookie{
		Name:  strings.TrimSpace(name),
		Value: strings.TrimSpace(value),
	}
	if c.Name == "" {
		return SetCookie{}, false
	}

	for _, attr := range parts[1:] {
		key, val, _ := strings.Cut(attr, "=")
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "path":
			c.Path = val
		case "domain":
			c.Domain = val
		case "expires":
			c.Expires = val
		case "max-age":
			if n, err := strconv.Atoi(val); err == nil {
				c.MaxAge = &n
			}
		case "httponly":
			c.HTTPOnly = true
		case "secure":
			c.Secure = true
		case "samesite":
			c.SameSite = val
		}
	}
	return c, true
}

// ParseAll parses every Set-Cookie header of h, in order, skipping headers
// without a name.
func ParseAll(h http.Header) []SetCookie {
	out := []SetCookie{}
	for _, raw := range h.Values("Set-Cookie") {
		if c, ok := ParseSetCookie(raw); ok {
			out = append(out, c)
		}
	}
	return out
}

// ExpiresAt returns the expiry instant. Expires is parsed with the HTTP date
// layouts; ok is false for session cookies and unparsable dates.
func (c SetCookie) ExpiresAt() (time.Time, bool) {
	if c.Expires == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{http.TimeFormat, time.RFC1123, time.RFC1123Z, "Mon, 02-Jan-2006 15:04:05 MST", time.RFC3339} {
		if t, err := time.Parse(layout, c.Expires); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
