package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/logging"
)

// SessionCookie describes the browser session cookie.
type SessionCookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration // 0 makes it a browser-session cookie
}

// Session makes sure every request belongs to a browser session. A missing or
// malformed cookie gets a fresh session ID. The ID is stored in the request
// context and added to every log record of the request.
func Session(cookie SessionCookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookie.Name); err == nil && core.ValidSessionID(c.Value) {
				id = c.Value
			} else {
				id = core.NewSessionID()
				http.SetCookie(w, &http.Cookie{
					Name:     cookie.Name,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cookie.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := core.ContextWithSessionID(r.Context(), id)
			ctx = logging.WithAttrs(ctx, slog.String("session_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
