package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/service"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
	"github.com/jihadsmadi/kindearth-backend/pkg/httputil"
	"github.com/jihadsmadi/kindearth-backend/pkg/validator"
)

// AuthHandler exposes registration, login, refresh, role assignment, logout,
// and profile endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookies *CookieManager
	logger  *slog.Logger
}

// NewAuthHandler creates the auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies *CookieManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,max=30"`
	Role      string `json:"role" validate:"omitempty,oneof=Customer Vendor"`
	StoreName string `json:"store_name" validate:"omitempty,max=200"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type assignRoleRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

type authResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens,omitempty"`
}

type profileResponse struct {
	User          *domain.User          `json:"user"`
	VendorProfile *domain.VendorProfile `json:"vendor_profile,omitempty"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid request body"))
		return
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      domain.Role(req.Role),
		StoreName: req.StoreName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: authResponse{User: user}})
}

// Login handles POST /api/auth/login. On success the token pair is delivered
// both as HttpOnly cookies and in the response body for non-browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid request body"))
		return
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.SetTokens(w, pair)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: authResponse{User: user, Tokens: pair}})
}

// Refresh handles POST /api/auth/refreshToken. Tokens are read from the
// cookies, falling back to the request body. An expired refresh token clears
// the cookies so the browser stops retrying; an invalid one leaves them
// untouched.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// Body is optional when cookies are present.
	_ = json.NewDecoder(r.Body).Decode(&req)

	accessToken := req.AccessToken
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		accessToken = cookie.Value
	}
	refreshToken := req.RefreshToken
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		refreshToken = cookie.Value
	}

	if accessToken == "" || refreshToken == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("missing tokens"), h.logger)
		return
	}

	user, pair, err := h.service.Refresh(r.Context(), accessToken, refreshToken)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == service.CodeRefreshExpired {
			h.cookies.Clear(w)
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.SetTokens(w, pair)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: authResponse{User: user, Tokens: pair}})
}

// AssignRole handles POST /api/auth/assignRole. Admin only.
func (h *AuthHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, apperrors.InvalidInput("invalid request body"))
		return
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	if err := h.service.AssignRole(r.Context(), claims, req.UserID, req.Role); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"message": "role assigned",
	}})
}

// Logout handles POST /api/auth/logout. The stored refresh token is cleared
// and both cookies are expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Clear(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"message": "logged out",
	}})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "missing credentials")
		return
	}

	user, profile, err := h.service.Profile(r.Context(), claims.UserID())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profileResponse{
		User:          user,
		VendorProfile: profile,
	}})
}
