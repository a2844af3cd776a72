package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
)

// Credentials identify the caller to the remote backend. A guest only has a session id.
type Credentials struct {
	Token     string
	SessionID string
}

func (cr Credentials) IsGuest() bool {
	return cr.Token == ""
}

// Apply sets the bearer token when present and the session id whenever it is known.
func (cr Credentials) Apply(r *http.Request) {
	if cr.Token != "" {
		r.Header.Set(inHttp.KEY_HEADER_AUTHORIZATION, inHttp.VALUE_BEARER_PREFIX+cr.Token)
	}
	if cr.SessionID != "" {
		r.Header.Set(inHttp.KEY_HEADER_SESSION_ID, cr.SessionID)
	}
}

// Validate rejects a jwt whose exp is in the past. Signatures are the backend's business so
// the token is parsed unverified, and opaque tokens pass untouched.
func (cr Credentials) Validate(now time.Time) error {
	if cr.Token == "" || strings.Count(cr.Token, ".") != 2 {
		return nil
	}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(cr.Token, &claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil
		}
		return inErrors.NewAuthError("token could not be read")
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return inErrors.NewAuthError("token expired")
	}
	return nil
}

func (cr Credentials) RequireUser(now time.Time) error {
	if cr.IsGuest() {
		return inErrors.NewAuthError("login required")
	}
	return cr.Validate(now)
}

// ParseAuthorization extracts the bearer token from an Authorization header value.
func ParseAuthorization(header string) string {
	if len(header) < len(inHttp.VALUE_BEARER_PREFIX) {
		return ""
	}
	if !strings.EqualFold(header[:len(inHttp.VALUE_BEARER_PREFIX)], inHttp.VALUE_BEARER_PREFIX) {
		return ""
	}
	return strings.TrimSpace(header[len(inHttp.VALUE_BEARER_PREFIX):])
}

type credentialsKey struct{}

func AttachToContext(c context.Context, cr Credentials) context.Context {
	return context.WithValue(c, credentialsKey{}, cr)
}

func FromContext(c context.Context) Credentials {
	if c == nil {
		return Credentials{}
	}
	cr, _ := c.Value(credentialsKey{}).(Credentials)
	return cr
}
