package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFileJar_PersistsAndRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	base := mustURL(t, "http://127.0.0.1:7002")

	j, err := NewFileJar(path, base)
	require.NoError(t, err)
	j.SetCookies(base, []*http.Cookie{{Name: "sid", Value: "abc", Path: "/", MaxAge: 3600}})
	require.NoError(t, j.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored, err := NewFileJar(path, base)
	require.NoError(t, err)
	got := restored.Cookies(mustURL(t, "http://127.0.0.1:7002/api/auth/status"))
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].Value)
}

func TestFileJar_IgnoresOtherServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	j, err := NewFileJar(path, mustURL(t, "http://a.example"))
	require.NoError(t, err)
	j.SetCookies(mustURL(t, "http://a.example"), []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}})
	require.NoError(t, j.Save())

	other, err := NewFileJar(path, mustURL(t, "http://b.example"))
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
}

func TestFileJar_DropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	base := mustURL(t, "http://127.0.0.1:7002")

	j, err := NewFileJar(path, base)
	require.NoError(t, err)
	j.SetCookies(base, []*http.Cookie{{Name: "sid", Value: "abc", Path: "/", MaxAge: 60}})
	require.NoError(t, j.Save())

	later, err := NewFileJar(path, base)
	require.NoError(t, err)
	assert.Equal(t, 1, later.Len())

	later.cookies = map[string]storedCookie{}
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.NoError(t, later.load())
	assert.Equal(t, 0, later.Len())
}

func TestFileJar_ClearedCookieIsForgotten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	base := mustURL(t, "http://127.0.0.1:7002")

	j, err := NewFileJar(path, base)
	require.NoError(t, err)
	j.SetCookies(base, []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}})
	j.SetCookies(base, []*http.Cookie{{Name: "sid", Value: "", Path: "/", MaxAge: -1}})
	require.NoError(t, j.Save())

	assert.Equal(t, 0, j.Len())
	assert.Empty(t, j.Cookies(base))
}

func TestFileJar_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := NewFileJar(path, mustURL(t, "http://127.0.0.1"))
	assert.ErrorContains(t, err, "decode session file")
}
