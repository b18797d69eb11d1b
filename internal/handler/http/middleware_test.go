package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
)

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager(
		"test-secret-key-for-handler-tests",
		"kindearth", "kindearth-clients",
		15*time.Minute, 168*time.Hour,
	)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func issueFor(t *testing.T, tokens *auth.TokenManager, roles ...domain.Role) string {
	t.Helper()
	token, err := tokens.IssueAccessToken(&domain.User{
		ID:        "11111111-2222-3333-4444-555555555555",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Roles:     roles,
	})
	require.NoError(t, err)
	return token
}

// claimsCapture records the claims the middleware stored for the handler.
func claimsCapture(captured **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_CookieToken(t *testing.T) {
	tokens := newTestTokens()
	token := issueFor(t, tokens, domain.RoleCustomer)

	var captured *auth.Claims
	handler := Authenticate(tokens, newTestLogger())(claimsCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", captured.UserID())
}

func TestAuthenticate_BearerFallback(t *testing.T) {
	tokens := newTestTokens()
	token := issueFor(t, tokens, domain.RoleCustomer)

	var captured *auth.Claims
	handler := Authenticate(tokens, newTestLogger())(claimsCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
}

func TestAuthenticate_CookieWinsOverHeader(t *testing.T) {
	tokens := newTestTokens()
	cookieToken := issueFor(t, tokens, domain.RoleVendor)

	var captured *auth.Claims
	handler := Authenticate(tokens, newTestLogger())(claimsCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: cookieToken})
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "cookie is authoritative when both are present")
	require.NotNil(t, captured)
	assert.Contains(t, captured.Roles, "Vendor")
}

func TestAuthenticate_MissingCredentials(t *testing.T) {
	handler := Authenticate(newTestTokens(), newTestLogger())(claimsCapture(new(*auth.Claims)))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing credentials")
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	handler := Authenticate(newTestTokens(), newTestLogger())(claimsCapture(new(*auth.Claims)))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "garbage"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	tokens := newTestTokens()
	token := issueFor(t, tokens, domain.RoleCustomer)

	tokens.WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })

	handler := Authenticate(tokens, newTestLogger())(claimsCapture(new(*auth.Claims)))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func withClaims(req *http.Request, roles ...string) *http.Request {
	claims := &auth.Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "11111111-2222-3333-4444-555555555555",
		},
	}
	return req.WithContext(context.WithValue(req.Context(), claimsKey, claims))
}

func TestRequirePolicy(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		policy []domain.Role
		roles  []string
		want   int
	}{
		{"admin on admin policy", domain.AdminPolicy, []string{"Admin"}, http.StatusOK},
		{"vendor on admin policy", domain.AdminPolicy, []string{"Vendor"}, http.StatusForbidden},
		{"admin on vendor policy", domain.VendorPolicy, []string{"Admin"}, http.StatusOK},
		{"vendor on vendor policy", domain.VendorPolicy, []string{"Vendor"}, http.StatusOK},
		{"customer on vendor policy", domain.VendorPolicy, []string{"Customer"}, http.StatusForbidden},
		{"customer on customer policy", domain.CustomerPolicy, []string{"Customer"}, http.StatusOK},
		{"multiple roles, one allowed", domain.AdminPolicy, []string{"Customer", "Admin"}, http.StatusOK},
		{"no roles", domain.CustomerPolicy, nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePolicy(tt.policy)(next)

			req := withClaims(httptest.NewRequest(http.MethodGet, "/", nil), tt.roles...)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequirePolicy_NoClaims(t *testing.T) {
	handler := RequirePolicy(domain.CustomerPolicy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient permissions")
}
