package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/projview/internal/config"
)

// APIKeyAuth guards a route group with the configured API keys. The key is
// read from X-API-Key or an "Authorization: Bearer" header. When
// RequireAPIKey is off every request passes.
func APIKeyAuth(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		keys := make([][]byte, len(cfg.APIKeys))
		for i, k := range cfg.APIKeys {
			keys[i] = []byte(k)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestAPIKey(r)
			switch {
			case key == "":
				rejectAPIKey(w, r, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
			case !matchesAny([]byte(key), keys):
				rejectAPIKey(w, r, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestAPIKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func rejectAPIKey(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	slog.WarnContext(r.Context(), "api key rejected", "code", code, "path", r.URL.Path, "ip", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}

// matchesAny compares key with every configured key in constant time.
func matchesAny(key []byte, keys [][]byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(key, k)
	}
	return match == 1
}
