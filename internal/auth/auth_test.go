package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/marketclub/internal/errors"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("not-the-backend-secret"))
	require.NoError(t, err)
	return signed
}

func TestApply(t *testing.T) {
	testCases := []struct {
		desc          string
		credentials   Credentials
		authorization string
		sessionID     string
	}{
		{
			desc:        "guest sends session id only",
			credentials: Credentials{SessionID: "s-1"},
			sessionID:   "s-1",
		},
		{
			desc:          "user sends bearer and session id",
			credentials:   Credentials{Token: "tok", SessionID: "s-1"},
			authorization: "Bearer tok",
			sessionID:     "s-1",
		},
		{
			desc:          "user without session",
			credentials:   Credentials{Token: "tok"},
			authorization: "Bearer tok",
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/cart", nil)
			tC.credentials.Apply(r)
			assert.Equal(t, tC.authorization, r.Header.Get("Authorization"))
			assert.Equal(t, tC.sessionID, r.Header.Get("X-Session-ID"))
		})
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, Credentials{}.Validate(now))
	assert.NoError(t, Credentials{Token: "opaque-token"}.Validate(now))
	assert.NoError(t, Credentials{Token: signedToken(t, now.Add(time.Hour))}.Validate(now))

	err := Credentials{Token: signedToken(t, now.Add(-time.Minute))}.Validate(now)
	assert.ErrorIs(t, err, inErrors.ErrAuth)
	assert.Equal(t, http.StatusUnauthorized, inErrors.StatusCode(err))
}

func TestRequireUser(t *testing.T) {
	now := time.Now()
	assert.ErrorIs(t, Credentials{SessionID: "s-1"}.RequireUser(now), inErrors.ErrAuth)
	assert.NoError(t, Credentials{Token: "opaque", SessionID: "s-1"}.RequireUser(now))
}

func TestParseAuthorization(t *testing.T) {
	assert.Equal(t, "abc", ParseAuthorization("Bearer abc"))
	assert.Equal(t, "abc", ParseAuthorization("bearer abc"))
	assert.Equal(t, "", ParseAuthorization("Basic abc"))
	assert.Equal(t, "", ParseAuthorization(""))
}

func TestContext(t *testing.T) {
	c := AttachToContext(context.Background(), Credentials{Token: "t", SessionID: "s"})
	assert.Equal(t, Credentials{Token: "t", SessionID: "s"}, FromContext(c))
	assert.Equal(t, Credentials{}, FromContext(context.Background()))
}
