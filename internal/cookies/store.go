package cookies

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
)

// Custom is a user declared cookie, sent on every proxied request while
// enabled.
type Custom struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// HeaderValue joins the enabled custom cookies as a Cookie header value.
func HeaderValue(custom []Custom) string {
	var pairs []string
	for _, c := range custom {
		if !c.Enabled || c.Name == "" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// SessionStore keeps the cookies captured from responses, keyed by name,
// domain and path. It is safe for concurrent use.
type SessionStore struct {
	mu      sync.Mutex
	cookies []SetCookie
}

func NewSessionStore(initial ...SetCookie) *SessionStore {
	s := &SessionStore{}
	for _, c := range initial {
		s.upsert(c)
	}
	return s
}

// Capture upserts every cookie. A Max-Age attribute is converted into an
// absolute Expires relative to now; Max-Age <= 0 removes the cookie.
func (s *SessionStore) Capture(now time.Time, captured ...SetCookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range captured {
		if c.MaxAge != nil {
			if *c.MaxAge <= 0 {
				s.remove(func(e SetCookie) bool { return sameCookie(e, c) })
				continue
			}
			c.Expires = now.Add(time.Duration(*c.MaxAge) * time.Second).UTC().Format(http.TimeFormat)
			c.MaxAge = nil
		}
		s.upsert(c)
	}
}

func (s *SessionStore) upsert(c SetCookie) {
	for i, existing := range s.cookies {
		if sameCookie(existing, c) {
			s.cookies[i] = c
			return
		}
	}
	s.cookies = append(s.cookies, c)
}

func sameCookie(a, b SetCookie) bool {
	return a.Name == b.Name && a.Domain == b.Domain && a.Path == b.Path
}

// Remove deletes every session cookie named name and reports how many were
// removed.
func (s *SessionStore) Remove(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(func(c SetCookie) bool { return c.Name == name })
}

func (s *SessionStore) remove(match func(SetCookie) bool) int {
	before := len(s.cookies)
	s.cookies = slices.DeleteFunc(s.cookies, match)
	return before - len(s.cookies)
}

// PurgeExpired drops cookies whose expiry is at or before now. Cookies
// without a parsable expiry are kept.
func (s *SessionStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(func(c SetCookie) bool {
		at, ok := c.ExpiresAt()
		return ok && !at.After(now)
	})
}

func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.cookies = nil
	s.mu.Unlock()
}

// List returns a copy of the stored cookies in capture order.
func (s *SessionStore) List() []SetCookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SetCookie{}, s.cookies...)
}
