package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/constants"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/session"
)

// Auth builds the caller credentials from the optional bearer token and the resolved
// session. A missing token is a guest. An expired jwt is rejected with 401.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "middleware Auth").Logger()

		creds := auth.Credentials{
			Token:     auth.ParseAuthorization(r.Header.Get(inHttp.KEY_HEADER_AUTHORIZATION)),
			SessionID: session.FromContext(c),
		}
		if err := creds.Validate(time.Now()); err != nil {
			logger.Warn().Err(err).Msg(err.Error())
			inHttp.WriteErrorResponse(c, w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.AttachToContext(c, creds)))
	})
}
