package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inHttp "github.com/Alturino/marketclub/internal/http"
)

type brokenStorage struct {
	saves int
}

func (s *brokenStorage) Load(context.Context) (string, error) {
	return "", errors.New("disk unavailable")
}

func (s *brokenStorage) Save(context.Context, string) error {
	s.saves++
	return errors.New("disk unavailable")
}

func TestGetOrCreateSessionID(t *testing.T) {
	c := context.Background()

	t.Run("should generate once and reuse the stored id", func(t *testing.T) {
		storage := NewMemoryStorage()
		provider := NewProvider(storage)

		first := provider.GetOrCreateSessionID(c)
		second := provider.GetOrCreateSessionID(c)

		assert.NotEmpty(t, first)
		assert.Equal(t, first, second)
		stored, err := storage.Load(c)
		require.NoError(t, err)
		assert.Equal(t, first, stored)
	})

	t.Run("should return an already stored id unchanged", func(t *testing.T) {
		storage := NewMemoryStorage()
		require.NoError(t, storage.Save(c, "existing-session"))

		assert.Equal(t, "existing-session", NewProvider(storage).GetOrCreateSessionID(c))
	})

	t.Run("should fall back to memory when storage fails", func(t *testing.T) {
		storage := &brokenStorage{}
		provider := NewProvider(storage)

		first := provider.GetOrCreateSessionID(c)
		second := provider.GetOrCreateSessionID(c)

		assert.NotEmpty(t, first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, storage.saves)
	})

	t.Run("should keep an id without storage", func(t *testing.T) {
		provider := NewProvider(nil)
		assert.Equal(t, provider.GetOrCreateSessionID(c), provider.GetOrCreateSessionID(c))
	})
}

func TestFileStorage(t *testing.T) {
	c := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage := NewFileStorage(path)

	_, err := storage.Load(c)
	assert.ErrorIs(t, err, ErrNoSession)

	id := NewProvider(storage).GetOrCreateSessionID(c)
	assert.FileExists(t, path)

	// a new provider over the same file behaves like a reopened browser tab
	assert.Equal(t, id, NewProvider(NewFileStorage(path)).GetOrCreateSessionID(c))

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = storage.Load(c)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestCookieStorage(t *testing.T) {
	c := context.Background()

	t.Run("should prefer the session header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set(inHttp.KEY_HEADER_SESSION_ID, "from-header")
		r.AddCookie(&http.Cookie{Name: "mc_session_id", Value: "from-cookie"})
		w := httptest.NewRecorder()

		id := NewProvider(NewCookieStorage(w, r, "mc_session_id", 30)).GetOrCreateSessionID(c)

		assert.Equal(t, "from-header", id)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("should read the cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.AddCookie(&http.Cookie{Name: "mc_session_id", Value: "from-cookie"})
		w := httptest.NewRecorder()

		assert.Equal(t, "from-cookie", NewProvider(NewCookieStorage(w, r, "mc_session_id", 30)).GetOrCreateSessionID(c))
	})

	t.Run("should set an http only cookie for a new session", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		w := httptest.NewRecorder()

		id := NewProvider(NewCookieStorage(w, r, "mc_session_id", 30)).GetOrCreateSessionID(c)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "mc_session_id", cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		assert.Equal(t, 30*24*60*60, cookies[0].MaxAge)
	})
}
