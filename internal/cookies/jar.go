package cookies

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// Jar is the cookie jar replayed on every proxied request. One Jar is
// created at startup and handed to the proxy; it is shared by everyone using
// that process, so it is only suitable for a single operator.
type Jar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

var _ http.CookieJar = (*Jar)(nil)

func NewJar() (*Jar, error) {
	j, err := newCookieJar()
	if err != nil {
		return nil, err
	}
	return &Jar{jar: j}, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return j, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Reset drops every stored cookie.
func (j *Jar) Reset() error {
	fresh, err := newCookieJar()
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = fresh
	j.mu.Unlock()
	return nil
}
