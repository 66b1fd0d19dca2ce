package middleware

import (
	"net/http"

	"github.com/dom/vidshare-backend/internal/csrf"
	"github.com/rs/zerolog/hlog"
)

// CSRF validates unsafe requests with the guard. Safe methods pass through
// and get a token cookie.
func CSRF(guard *csrf.Guard) func(http.Handler) http.Handler {
	return guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hlog.FromRequest(r).Debug().
			Str("path", r.URL.Path).
			AnErr("reason", csrf.FailureReason(r)).
			Msg("csrf validation failed")
		writeMessage(w, http.StatusForbidden, "Invalid CSRF token")
	}))
}
