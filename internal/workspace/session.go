package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/executor"
	"github.com/kolah/speclens/internal/store"
)

var variableName = regexp.MustCompile(`^\w+$`)

func (w *Workspace) Auth() executor.AuthConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.auth
}

// SetAuth replaces the credentials. They are written to the store only
// when PersistSession is set; otherwise any stored credentials are removed
// and the new ones live in memory only.
func (w *Workspace) SetAuth(ctx context.Context, auth executor.AuthConfig) error {
	if auth.Type == "" {
		auth.Type = executor.AuthNone
	}
	if err := auth.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	if auth.PersistSession {
		err = w.store.SaveState(ctx, store.KeyAuth, stateVersion, auth)
	} else {
		err = w.store.DeleteState(ctx, store.KeyAuth)
	}
	if err != nil {
		return fmt.Errorf("storing auth: %w", err)
	}
	w.auth = auth
	return nil
}

func (w *Workspace) Variables() []executor.Variable {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]executor.Variable{}, w.variables...)
}

// ValidateVariables requires unique names made of word characters only,
// since that is what an @name reference can match.
func ValidateVariables(vars []executor.Variable) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if !variableName.MatchString(v.Name) {
			return fmt.Errorf("invalid variable name %q (letters, digits and underscore only)", v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate variable %q", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// SetVariables replaces every variable.
func (w *Workspace) SetVariables(ctx context.Context, vars []executor.Variable) error {
	if err := ValidateVariables(vars); err != nil {
		return err
	}
	if vars == nil {
		vars = []executor.Variable{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.SaveState(ctx, store.KeyVariables, stateVersion, vars); err != nil {
		return fmt.Errorf("storing variables: %w", err)
	}
	w.variables = append([]executor.Variable{}, vars...)
	return nil
}

// CookieState lists the user declared cookies and those captured from
// responses.
type CookieState struct {
	Custom  []cookies.Custom    `json:"custom"`
	Session []cookies.SetCookie `json:"session"`
}

func (w *Workspace) Cookies() CookieState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return CookieState{
		Custom:  append([]cookies.Custom{}, w.custom...),
		Session: w.session.List(),
	}
}

func ValidateCustomCookies(custom []cookies.Custom) error {
	for i, c := range custom {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("cookie %d: name is required", i)
		}
		if strings.ContainsAny(c.Name, "=; ") {
			return fmt.Errorf("invalid cookie name %q", c.Name)
		}
	}
	return nil
}

func (w *Workspace) SetCustomCookies(ctx context.Context, custom []cookies.Custom) error {
	if err := ValidateCustomCookies(custom); err != nil {
		return err
	}
	if custom == nil {
		custom = []cookies.Custom{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.SaveState(ctx, store.KeyCustomCookies, stateVersion, custom); err != nil {
		return fmt.Errorf("storing custom cookies: %w", err)
	}
	w.custom = append([]cookies.Custom{}, custom...)
	return nil
}

func cookieKey(c cookies.SetCookie) string {
	return c.Name + "|" + c.Domain + "|" + c.Path
}

// CaptureCookies records the cookies a response to rawURL set, for
// exchanges relayed outside Execute.
func (w *Workspace) CaptureCookies(rawURL string, set []cookies.SetCookie) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	w.capture(u, set)
}

// capture records the cookies set by a response to u. The proxy jar has
// already stored them; the session store is the listing users manage.
func (w *Workspace) capture(u *url.URL, set []cookies.SetCookie) {
	if len(set) == 0 {
		return
	}
	w.session.Capture(w.now(), set...)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range set {
		w.origins[cookieKey(c)] = u
	}
}

// RemoveSessionCookie forgets every captured cookie named name, both in
// the listing and in the jar replayed on outgoing requests.
func (w *Workspace) RemoveSessionCookie(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range w.session.List() {
		if c.Name != name {
			continue
		}
		key := cookieKey(c)
		if origin, ok := w.origins[key]; ok {
			w.jar.SetCookies(origin, []*http.Cookie{{
				Name:   c.Name,
				Path:   c.Path,
				Domain: c.Domain,
				MaxAge: -1,
			}})
			delete(w.origins, key)
		}
	}
	return w.session.Remove(name)
}

// PurgeExpired drops captured cookies whose expiry has passed.
func (w *Workspace) PurgeExpired() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.session.PurgeExpired(w.now())
	live := make(map[string]bool)
	for _, c := range w.session.List() {
		live[cookieKey(c)] = true
	}
	for key := range w.origins {
		if !live[key] {
			delete(w.origins, key)
		}
	}
	return n
}

// ClearSessionCookies empties both the listing and the jar.
func (w *Workspace) ClearSessionCookies() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.Clear()
	clear(w.origins)
	return w.jar.Reset()
}
