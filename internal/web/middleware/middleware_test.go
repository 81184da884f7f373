package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/projview/internal/config"
	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestProxyList_ClientIP(t *testing.T) {
	proxies := ParseProxyList([]string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"})
	require.Len(t, proxies, 2)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted ignores headers", "203.0.113.9:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.9"},
		{"trusted real ip", "10.1.2.3:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted single host", "192.168.1.5:80", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"trusted forwarded chain", "10.1.2.3:5000", map[string]string{"X-Forwarded-For": "9.9.9.9, 10.1.2.3"}, "9.9.9.9"},
		{"trusted invalid header", "10.1.2.3:5000", map[string]string{"X-Real-IP": "bogus"}, "10.1.2.3"},
		{"trusted no header", "10.1.2.3:5000", nil, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, proxies.ClientIP(r))
		})
	}
}

func TestTrustedRealIP_StoresRequestMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := TrustedRealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = core.GetIPAddressFromContext(r.Context())
		gotUA = core.GetUserAgentFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:1234"
	r.Header.Set("User-Agent", "test-agent")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "198.51.100.7", gotIP)
	assert.Equal(t, "test-agent", gotUA)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "limits are per IP")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"), "new window")

	now = now.Add(3 * time.Minute)
	assert.Equal(t, 2, rl.Prune())
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Middleware(okHandler)

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "203.0.113.1:999"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.SecurityConfig
		key    string
		status int
	}{
		{"disabled", config.SecurityConfig{}, "", http.StatusOK},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "", http.StatusUnauthorized},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "k2", http.StatusForbidden},
		{"valid key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k0", "k1"}}, "k1", http.StatusOK},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "k1", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/labels", nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			APIKeyAuth(tt.cfg)(okHandler).ServeHTTP(w, r)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAPIKeyAuth_BearerToken(t *testing.T) {
	h := APIKeyAuth(config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}})(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/api/labels", nil)
	r.Header.Set("Authorization", "Bearer k1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/labels", nil)
	r.Header.Set("Authorization", "Basic k1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, w.Body.String())
}

func TestSession_IssuesAndReusesCookie(t *testing.T) {
	var seen string
	h := Session(SessionCookie{Name: "sid"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = core.GetSessionIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, core.ValidSessionID(seen))
	assert.Equal(t, cookies[0].Value, seen)

	first := seen
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Result().Cookies(), "valid cookie is not reissued")
	assert.Equal(t, first, seen)
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	var seen string
	h := Session(SessionCookie{Name: "sid"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = core.GetSessionIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc/passwd"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.True(t, core.ValidSessionID(seen))
	assert.NotEmpty(t, w.Result().Cookies())
}

func TestLogger_RecordsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "bytes=4")
	assert.Contains(t, out, "path=/missing")
}
