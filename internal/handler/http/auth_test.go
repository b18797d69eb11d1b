package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/event"
	"github.com/jihadsmadi/kindearth-backend/internal/service"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
)

// fakeUserRepo backs the auth service with a single in-memory user.
type fakeUserRepo struct {
	user *domain.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if f.user != nil && f.user.Email == user.Email {
		return apperrors.AlreadyExists("user", "email", user.Email)
	}
	f.user = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, apperrors.NotFound("user", id)
	}
	return f.user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, apperrors.NotFound("user", email)
	}
	return f.user, nil
}

func (f *fakeUserRepo) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	if f.user == nil || f.user.ID != userID {
		return apperrors.NotFound("user", userID)
	}
	if !f.user.HasRole(role) {
		f.user.Roles = append(f.user.Roles, role)
	}
	return nil
}

func (f *fakeUserRepo) UpdateRefreshToken(ctx context.Context, userID string, digest *string, expiresAt *time.Time) error {
	if f.user == nil || f.user.ID != userID {
		return apperrors.NotFound("user", userID)
	}
	f.user.RefreshTokenHash = digest
	f.user.RefreshTokenExpiresAt = expiresAt
	return nil
}

type fakeVendorRepo struct {
	profile *domain.VendorProfile
}

func (f *fakeVendorRepo) Create(ctx context.Context, profile *domain.VendorProfile) error {
	f.profile = profile
	return nil
}

func (f *fakeVendorRepo) GetByUserID(ctx context.Context, userID string) (*domain.VendorProfile, error) {
	if f.profile == nil || f.profile.UserID != userID {
		return nil, apperrors.NotFound("vendor profile", userID)
	}
	return f.profile, nil
}

func (f *fakeVendorRepo) Update(ctx context.Context, profile *domain.VendorProfile) error {
	f.profile = profile
	return nil
}

func newAuthHandlerFixture(t *testing.T, tokens *auth.TokenManager) (*AuthHandler, *fakeUserRepo) {
	t.Helper()
	logger := newTestLogger()

	hash, err := bcrypt.GenerateFromPassword([]byte("SecurePass1!"), 4)
	require.NoError(t, err)

	users := &fakeUserRepo{user: &domain.User{
		ID:           "11111111-2222-3333-4444-555555555555",
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		FirstName:    "Jane",
		LastName:     "Doe",
		Roles:        []domain.Role{domain.RoleCustomer},
	}}

	svc := service.NewAuthService(users, &fakeVendorRepo{}, tokens, event.NewProducer(nil, logger), logger)
	cookies := NewCookieManager("production", 15*time.Minute, 168*time.Hour)
	return NewAuthHandler(svc, cookies, logger), users
}

func loginPair(t *testing.T, h *AuthHandler) *domain.TokenPair {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": "jane@example.com", "password": "SecurePass1!"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Tokens *domain.TokenPair `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Tokens)
	return resp.Data.Tokens
}

func TestLoginHandler_SetsCookies(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())

	body, _ := json.Marshal(map[string]string{"email": "jane@example.com", "password": "SecurePass1!"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	access := cookieByName(t, cookies, AccessTokenCookie)
	assert.NotEmpty(t, access.Value)
	assert.True(t, access.HttpOnly)
}

func TestLoginHandler_BadCredentials(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())

	body, _ := json.Marshal(map[string]string{"email": "jane@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
	assert.Empty(t, rec.Result().Cookies())
}

func TestRefreshHandler_FromCookies(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())
	pair := loginPair(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refreshToken", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: pair.AccessToken})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := cookieByName(t, rec.Result().Cookies(), RefreshTokenCookie)
	assert.NotEmpty(t, refreshed.Value)
	assert.NotEqual(t, pair.RefreshToken, refreshed.Value, "refresh token must rotate")
}

func TestRefreshHandler_FromBody(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())
	pair := loginPair(t, h)

	body, _ := json.Marshal(map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refreshToken", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRefreshHandler_MissingTokens(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refreshToken", nil)
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshHandler_InvalidTokenLeavesCookies(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())
	pair := loginPair(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refreshToken", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: pair.AccessToken})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "tampered"})
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "a mismatch must not clear cookies")
}

func TestRefreshHandler_ExpiredTokenClearsCookies(t *testing.T) {
	tokens := newTestTokens()
	h, users := newAuthHandlerFixture(t, tokens)
	pair := loginPair(t, h)

	// Jump past the stored refresh expiry.
	expiry := *users.user.RefreshTokenExpiresAt
	tokens.WithClock(func() time.Time { return expiry.Add(time.Minute) })

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refreshToken", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: pair.AccessToken})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2, "expiry must clear both cookies")
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestLogoutHandler_ClearsSession(t *testing.T) {
	h, users := newAuthHandlerFixture(t, newTestTokens())
	loginPair(t, h)
	require.NotNil(t, users.user.RefreshTokenHash)

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), "Customer")
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, users.user.RefreshTokenHash)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestRegisterHandler_Created(t *testing.T) {
	h, users := newAuthHandlerFixture(t, newTestTokens())
	users.user = nil

	body, _ := json.Marshal(map[string]string{
		"email":      "john@example.com",
		"password":   "SecurePass1!",
		"first_name": "John",
		"last_name":  "Doe",
		"phone":      "+15550100",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies(), "registration must not start a session")
	assert.NotContains(t, rec.Body.String(), "SecurePass1!")
}

func TestRegisterHandler_RejectsAdminRole(t *testing.T) {
	h, users := newAuthHandlerFixture(t, newTestTokens())
	users.user = nil

	body, _ := json.Marshal(map[string]string{
		"email":      "john@example.com",
		"password":   "SecurePass1!",
		"first_name": "John",
		"last_name":  "Doe",
		"phone":      "+15550100",
		"role":       "Admin",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignRoleHandler_NonAdminMessage(t *testing.T) {
	h, _ := newAuthHandlerFixture(t, newTestTokens())

	body, _ := json.Marshal(map[string]string{"user_id": "11111111-2222-3333-4444-555555555555", "role": "Vendor"})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/auth/assignRole", bytes.NewReader(body)), "Customer")
	rec := httptest.NewRecorder()

	h.AssignRole(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized: Admins only")
}
