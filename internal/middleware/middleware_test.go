package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/session"
)

func TestSessionAndAuth(t *testing.T) {
	var got auth.Credentials
	handler := Session(config.Session{CookieName: "mc_session_id", MaxAgeDays: 30})(
		Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = auth.FromContext(r.Context())
			assert.Equal(t, got.SessionID, session.FromContext(r.Context()))
		})),
	)

	t.Run("guest gets a new session cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, got.IsGuest())
		require.Len(t, w.Result().Cookies(), 1)
		assert.Equal(t, got.SessionID, w.Result().Cookies()[0].Value)
	})

	t.Run("user keeps header session and token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("X-Session-ID", "s-1")
		r.Header.Set("Authorization", "Bearer opaque")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, auth.Credentials{Token: "opaque", SessionID: "s-1"}, got)
	})

	t.Run("expired jwt is rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRecoverPanic(t *testing.T) {
	handler := RecoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "failed", body["status"])
}

func TestLoggingKeepsBody(t *testing.T) {
	var got string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got = string(raw)
	}))
	payload := `{"product_id":"p1","quantity":2}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(payload)))

	assert.Equal(t, payload, got)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
