package cookies

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderValue(t *testing.T) {
	custom := []Custom{
		{Name: "a", Value: "1", Enabled: true},
		{Name: "b", Value: "2", Enabled: false},
		{Name: "", Value: "x", Enabled: true},
		{Name: "c", Value: "3", Enabled: true},
	}
	assert.Equal(t, "a=1; c=3", HeaderValue(custom))
	assert.Empty(t, HeaderValue(nil))
}

func TestSessionStoreUpsert(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessionStore()

	s.Capture(now,
		SetCookie{Name: "sid", Value: "1", Path: "/"},
		SetCookie{Name: "sid", Value: "other-path", Path: "/admin"},
	)
	s.Capture(now, SetCookie{Name: "sid", Value: "2", Path: "/"})

	got := s.List()
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Value)
	assert.Equal(t, "other-path", got[1].Value)
}

func TestSessionStoreMaxAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessionStore()

	s.Capture(now, SetCookie{Name: "short", Value: "v", MaxAge: intPtr(60)})
	got := s.List()
	require.Len(t, got, 1)
	assert.Nil(t, got[0].MaxAge)
	at, ok := got[0].ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), at.UTC())

	s.Capture(now, SetCookie{Name: "short", MaxAge: intPtr(0)})
	assert.Empty(t, s.List())
}

func TestSessionStorePurgeExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessionStore(
		SetCookie{Name: "old", Expires: now.Add(-time.Hour).Format(http.TimeFormat)},
		SetCookie{Name: "edge", Expires: now.Format(http.TimeFormat)},
		SetCookie{Name: "fresh", Expires: now.Add(time.Hour).Format(http.TimeFormat)},
		SetCookie{Name: "session"},
	)

	assert.Equal(t, 2, s.PurgeExpired(now))

	var names []string
	for _, c := range s.List() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"fresh", "session"}, names)
}

func TestSessionStoreRemove(t *testing.T) {
	s := NewSessionStore(
		SetCookie{Name: "sid", Path: "/"},
		SetCookie{Name: "sid", Path: "/admin"},
		SetCookie{Name: "theme"},
	)
	assert.Equal(t, 2, s.Remove("sid"))
	assert.Equal(t, 0, s.Remove("missing"))
	require.Len(t, s.List(), 1)

	s.Clear()
	assert.Empty(t, s.List())
	assert.NotNil(t, s.List())
}

func TestJarReplaysAndResets(t *testing.T) {
	jar, err := NewJar()
	require.NoError(t, err)

	u, _ := url.Parse("https://api.example.com/login")
	jar.SetCookies(u, []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}})

	other, _ := url.Parse("https://api.example.com/pets")
	got := jar.Cookies(other)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].Value)

	elsewhere, _ := url.Parse("https://example.org/")
	assert.Empty(t, jar.Cookies(elsewhere))

	require.NoError(t, jar.Reset())
	assert.Empty(t, jar.Cookies(other))
}
