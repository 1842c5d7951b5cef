package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/config"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	jwtService := utils.NewJWTService("secret")
	pair, err := jwtService.GenerateTokenPair(&models.User{ID: "u-1", Email: "a@example.com", Role: models.RoleOrganization, OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var seen *models.User
	h := AuthMiddleware(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", pair.AccessToken, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"access token", "Bearer " + pair.AccessToken, http.StatusNoContent},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
		}
	}
	if seen == nil || seen.ID != "u-1" || seen.Role != models.RoleOrganization || seen.OrganizationID != "org-1" {
		t.Fatalf("unexpected context user: %+v", seen)
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	h := RequireRole(models.RoleAdmin)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", rec.Code)
	}

	for role, want := range map[models.Role]int{
		models.RoleMember:       http.StatusForbidden,
		models.RoleOrganization: http.StatusForbidden,
		models.RoleAdmin:        http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithUser(req.Context(), &models.User{ID: "u", Role: role}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	h := RateLimitByIP(cache.NewMemoryCache(), 2)(okHandler())
	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// the two requests could straddle a minute boundary; the third is what matters
	send("10.0.0.1")
	send("10.0.0.1")
	rec := send("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests && rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
		t.Fatalf("429 should carry Retry-After")
	}
	if other := send("10.0.0.2"); other.Code != http.StatusNoContent {
		t.Fatalf("other IPs have their own budget, got %d", other.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	t.Parallel()

	h := RateLimitByIP(cache.NewMemoryCache(), 0)(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("limiter disabled, got %d", rec.Code)
		}
	}
}

func TestServiceKey(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("svc-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h := ServiceKey(string(hash))(okHandler())

	for key, want := range map[string]int{
		"":        http.StatusUnauthorized,
		"wrong":   http.StatusUnauthorized,
		"svc-key": http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/internal/notifications", nil)
		if key != "" {
			req.Header.Set("X-Service-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("key %q: status = %d, want %d", key, rec.Code, want)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Service-Key", "svc-key")
	ServiceKey("")(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unconfigured hash must reject, got %d", rec.Code)
	}
}

func TestContentTypeJSON(t *testing.T) {
	t.Parallel()

	h := ContentTypeJSON(okHandler())
	cases := []struct {
		contentType string
		want        int
	}{
		{"application/json; charset=utf-8", http.StatusNoContent},
		{"text/plain", http.StatusUnsupportedMediaType},
		{"", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(`{}`))
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%q: status = %d, want %d", tc.contentType, rec.Code, tc.want)
		}
	}
}

func TestRecoveryAndNormalize(t *testing.T) {
	t.Parallel()

	var path string
	h := Normalize()(Recovery(&config.Config{Environment: "production"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if path != "/api/events" {
		t.Fatalf("trailing slash should be trimmed, got %q", path)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("production responses must not leak panic details: %s", rec.Body.String())
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Fatalf("remote addr ip = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("forwarded ip = %q", got)
	}
}
