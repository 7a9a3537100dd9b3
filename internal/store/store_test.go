package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenDir(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesOwnerOnlyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s, err := OpenDir(dir)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(filepath.Join(dir, DBFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secureFileMode), info.Mode().Perm())
}

func TestSpecRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LoadSpec(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	loaded := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	refreshed := loaded.Add(time.Hour)
	spec := StoredSpec{
		Source: SpecSource{
			ID:           SourceID(SourceURL, "https://example.com/openapi.json"),
			Type:         SourceURL,
			Name:         "https://example.com/openapi.json",
			ETag:         `"v1"`,
			LastModified: "Wed, 21 Oct 2015 07:28:00 GMT",
			LoadedAt:     loaded,
			RefreshedAt:  &refreshed,
		},
		Data: []byte(`{"openapi":"3.0.0"}`),
	}
	require.NoError(t, s.SaveSpec(ctx, spec))

	got, err := s.LoadSpec(ctx)
	require.NoError(t, err)
	assert.Equal(t, spec, *got)

	spec.Source.ETag = `"v2"`
	spec.Source.RefreshedAt = nil
	require.NoError(t, s.SaveSpec(ctx, spec))
	got, err = s.LoadSpec(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, got.Source.ETag)
	assert.Nil(t, got.Source.RefreshedAt)

	require.NoError(t, s.ClearSpec(ctx))
	_, err = s.LoadSpec(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStateIsVersionedPerKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	type vars struct {
		Names []string `json:"names"`
	}
	require.NoError(t, s.SaveState(ctx, KeyVariables, 1, vars{Names: []string{"a"}}))
	require.NoError(t, s.SaveState(ctx, KeyAuth, 2, map[string]string{"type": "bearer"}))

	var got vars
	ok, err := s.LoadState(ctx, KeyVariables, 1, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got.Names)

	var auth map[string]string
	ok, err = s.LoadState(ctx, KeyAuth, 3, &auth)
	require.NoError(t, err)
	assert.False(t, ok, "a version mismatch reads as absent")

	ok, err = s.LoadState(ctx, KeyVariables, 1, &got)
	require.NoError(t, err)
	assert.True(t, ok, "other keys are unaffected")

	require.NoError(t, s.DeleteState(ctx, KeyVariables))
	ok, err = s.LoadState(ctx, KeyVariables, 1, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateUndecodableIsAbsent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveState(ctx, KeySelection, 1, "just a string"))
	var out map[string]string
	ok, err := s.LoadState(ctx, KeySelection, 1, &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTestData(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LoadTestData(ctx, "url:a", "GET:/pets")
	require.ErrorIs(t, err, ErrNotFound)

	data := TestData{
		PathParams:     map[string]string{"id": "42"},
		SelectedServer: "https://api.example.com",
		Response:       &proxy.Response{Status: 200, StatusText: "OK", Data: "ok"},
	}
	require.NoError(t, s.SaveTestData(ctx, "url:a", "GET:/pets/{id}", data))
	require.NoError(t, s.SaveTestData(ctx, "url:a", "DELETE:/pets/{id}", TestData{RequestBody: "x"}))

	got, err := s.LoadTestData(ctx, "url:a", "GET:/pets/{id}")
	require.NoError(t, err)
	assert.Equal(t, "42", got.PathParams["id"])
	assert.Equal(t, 200, got.Response.Status)

	other, err := s.LoadTestData(ctx, "url:a", "DELETE:/pets/{id}")
	require.NoError(t, err)
	assert.Equal(t, "x", other.RequestBody)

	_, err = s.LoadTestData(ctx, "url:b", "GET:/pets/{id}")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.ClearTestData(ctx))
	_, err = s.LoadTestData(ctx, "url:a", "GET:/pets/{id}")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryCapAndOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.AddHistory(ctx, HistoryEntry{
			Method:  "GET",
			URL:     "https://api.example.com/" + string(rune('a'+i)),
			Request: proxy.Request{Method: "GET"},
		}, 3)
		require.NoError(t, err)
	}

	entries, err := s.ListHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "https://api.example.com/e", entries[0].URL)
	assert.Equal(t, "https://api.example.com/c", entries[2].URL)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestHistoryRedactsAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	duration := int64(12)
	saved, err := s.AddHistory(ctx, HistoryEntry{
		Method: "POST",
		URL:    "https://api.example.com/login",
		Request: proxy.Request{
			Method:  "POST",
			Headers: map[string]string{"Authorization": "Bearer secret", "X-Tenant": "t1", "X-Custom-Key": "k"},
		},
		Response: &proxy.Response{
			Status:     200,
			Headers:    map[string]string{"set-cookie": "sid=abc", "content-type": "application/json"},
			SetCookies: []cookies.SetCookie{{Name: "sid", Value: "abc", HTTPOnly: true}},
			Data:       map[string]any{"ok": true},
		},
		Duration: &duration,
	}, DefaultHistoryLimit, "x-custom-key")
	require.NoError(t, err)

	got, err := s.GetHistory(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", got.Request.Headers["Authorization"])
	assert.Equal(t, "[REDACTED]", got.Request.Headers["X-Custom-Key"])
	assert.Equal(t, "t1", got.Request.Headers["X-Tenant"])
	assert.Equal(t, "[REDACTED]", got.Response.Headers["set-cookie"])
	assert.Equal(t, "application/json", got.Response.Headers["content-type"])
	require.Len(t, got.Response.SetCookies, 1)
	assert.Equal(t, "sid", got.Response.SetCookies[0].Name)
	assert.Equal(t, "[REDACTED]", got.Response.SetCookies[0].Value)
	assert.Equal(t, map[string]any{"ok": true}, got.Response.Data)
	require.NotNil(t, got.Duration)
	assert.Equal(t, int64(12), *got.Duration)

	_, err = s.GetHistory(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryWithError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	saved, err := s.AddHistory(ctx, HistoryEntry{Method: "GET", URL: "http://localhost:1", Error: "Request timed out"}, 0)
	require.NoError(t, err)

	got, err := s.GetHistory(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Response)
	assert.Equal(t, "Request timed out", got.Error)

	require.NoError(t, s.ClearHistory(ctx))
	entries, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedactHeaders(t *testing.T) {
	assert.Nil(t, RedactHeaders(nil))
	in := map[string]string{"cookie": "a=b", "Accept": "*/*"}
	out := RedactHeaders(in)
	assert.Equal(t, map[string]string{"cookie": "[REDACTED]", "Accept": "*/*"}, out)
	assert.Equal(t, "a=b", in["cookie"], "input is not modified")
}
