package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/config"
	"github.com/straye-as/labelling-app/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_DefaultConfig(t *testing.T) {
	cfg := &config.SecurityConfig{
		ContentTypeNosniff:    true,
		FrameOptions:          "DENY",
		XSSProtection:         "1; mode=block",
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=()",
	}

	w := serve(middleware.SecurityHeaders(cfg)(ok), httptest.NewRequest(http.MethodGet, "/label", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "geolocation=()", w.Header().Get("Permissions-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		expected string
	}{
		{"plain", config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 31536000}, "max-age=31536000"},
		{"subdomains", config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 60, HSTSIncludeSubdomains: true}, "max-age=60; includeSubDomains"},
		{"preload", config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 60, HSTSIncludeSubdomains: true, HSTSPreload: true}, "max-age=60; includeSubDomains; preload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			w := serve(middleware.SecurityHeaders(&cfg)(ok), httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.expected, w.Header().Get("Strict-Transport-Security"))
			assert.Empty(t, w.Header().Get("X-Frame-Options"))
		})
	}
}

func TestNoStore(t *testing.T) {
	w := serve(middleware.NoStore(ok), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}, zap.NewNop())
	h := rl.Limit(ok)

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/label", nil)
		assert.Equal(t, http.StatusOK, serve(h, req).Code)
	}
}

func TestRateLimiter_LimitsAnonymousByIP(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     2,
		RequestsPerMinuteAuth: 100,
	}, zap.NewNop())
	h := rl.Limit(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/label", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, serve(h, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/label", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(h, other).Code)
}

func TestRateLimiter_UsersHaveTheirOwnBudget(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     1,
		RequestsPerMinuteAuth: 3,
	}, zap.NewNop())
	h := rl.Limit(ok)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/label", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{Username: "ada"}))
		assert.Equal(t, http.StatusOK, serve(h, req).Code)
	}
}

func TestRateLimiter_Whitelists(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		WhitelistIPs:      []string{"127.0.0.1"},
		WhitelistPaths:    []string{"/health", "/static/*"},
	}, zap.NewNop())
	h := rl.Limit(ok)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/label", nil)
		req.RemoteAddr = "127.0.0.1:999"
		assert.Equal(t, http.StatusOK, serve(h, req).Code)

		for _, path := range []string{"/health", "/static/app.css"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "10.9.9.9:999"
			assert.Equal(t, http.StatusOK, serve(h, req).Code)
		}
	}
}

func TestRateLimiter_UsesForwardedFor(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}, zap.NewNop())
	h := rl.Limit(ok)

	first := httptest.NewRequest(http.MethodGet, "/label", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, http.StatusOK, serve(h, first).Code)

	second := httptest.NewRequest(http.MethodGet, "/label", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := serve(h, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := middleware.Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w = serve(h, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := middleware.Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	h := middleware.CORS(&config.CORSConfig{
		AllowedOrigins: []string{"https://labelling.example.com"},
		AllowedMethods: []string{"GET"},
	}, "production", zap.NewNop())(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Origin", "https://labelling.example.com")
	assert.Equal(t, "https://labelling.example.com", serve(h, req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.Empty(t, serve(h, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginsInProductionDeniesAll(t *testing.T) {
	h := middleware.CORS(&config.CORSConfig{AllowedMethods: []string{"GET"}}, "production", zap.NewNop())(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	assert.Empty(t, serve(h, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DevelopmentAllowsAll(t *testing.T) {
	h := middleware.CORS(&config.CORSConfig{AllowedMethods: []string{"GET"}}, "development", zap.NewNop())(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", serve(h, req).Header().Get("Access-Control-Allow-Origin"))
}
