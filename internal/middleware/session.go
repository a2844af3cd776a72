package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	"github.com/Alturino/marketclub/internal/session"
)

// Session resolves the guest session of the request from the X-Session-ID header or the
// session cookie and issues a new cookie when neither is present.
func Session(cfg config.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := r.Context()
			storage := session.NewCookieStorage(w, r, cfg.CookieName, cfg.MaxAgeDays)
			id := session.NewProvider(storage).GetOrCreateSessionID(c)

			logger := zerolog.Ctx(c).With().Str(constants.KEY_SESSION_ID, id).Logger()
			c = logger.WithContext(session.AttachToContext(c, id))

			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
