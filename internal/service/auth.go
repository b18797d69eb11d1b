package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/event"
	"github.com/jihadsmadi/kindearth-backend/internal/repository"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
)

const bcryptCost = 12

// Authentication error codes the HTTP layer inspects.
const (
	CodeRefreshExpired = "REFRESH_TOKEN_EXPIRED"
)

// AuthService implements registration, login, token refresh, role
// management, and profile reads.
type AuthService struct {
	users   repository.UserRepository
	vendors repository.VendorProfileRepository
	tokens  *auth.TokenManager
	events  *event.Producer
	logger  *slog.Logger
}

// NewAuthService creates the authentication service.
func NewAuthService(
	users repository.UserRepository,
	vendors repository.VendorProfileRepository,
	tokens *auth.TokenManager,
	events *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		vendors: vendors,
		tokens:  tokens,
		events:  events,
		logger:  logger,
	}
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      domain.Role
	StoreName string
}

// Register creates a new user account. The role defaults to Customer and may
// only be Customer or Vendor; Admin is never self-assignable. Vendor
// registrations also create a vendor profile carrying the store name.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleCustomer
	}
	if !domain.IsRegistrationRole(in.Role) {
		return nil, apperrors.InvalidInput("role must be Customer or Vendor")
	}

	if strings.TrimSpace(in.Phone) == "" {
		return nil, apperrors.InvalidInput("phone is required")
	}

	if violations := ValidatePassword(in.Password); len(violations) > 0 {
		return nil, apperrors.Validation("password does not meet requirements", map[string]string{
			"password": strings.Join(violations, "; "),
		})
	}

	if in.Role == domain.RoleVendor && strings.TrimSpace(in.StoreName) == "" {
		return nil, apperrors.InvalidInput("store name is required for vendor registration")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(err, "hash password")
	}

	now := s.tokens.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        strings.TrimSpace(in.Phone),
		Roles:        []domain.Role{in.Role},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if in.Role == domain.RoleVendor {
		profile := &domain.VendorProfile{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			StoreName: strings.TrimSpace(in.StoreName),
			CreatedAt: now,
			UpdatedAt: now,
		}
		// The account is already committed, so a failed profile insert must
		// not fail the registration. The vendor can fill in the storefront
		// later through the profile endpoints.
		if err := s.vendors.Create(ctx, profile); err != nil {
			s.logger.WarnContext(ctx, "vendor profile creation failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.events.UserRegisteredEvent(ctx, user)

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(in.Role)),
	)

	return user, nil
}

// Login verifies the credentials and issues a fresh token pair. The refresh
// token digest and expiry are stored on the user record, replacing any
// previous session. Unknown email and wrong password produce the same error
// so the response does not reveal which one failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return user, pair, nil
}

// Refresh exchanges an expired (or still valid) access token plus the
// matching refresh token for a new pair. The presented access token's
// signature, issuer, and audience are still verified; only its lifetime is
// ignored. A mismatched refresh token yields a generic invalid error; an
// expired one yields a distinct error so the HTTP layer can clear cookies.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.User, *domain.TokenPair, error) {
	claims, err := s.tokens.ParseExpiredToken(accessToken)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid access token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, nil, err
	}

	if user.RefreshTokenHash == nil || !auth.VerifyRefreshToken(refreshToken, *user.RefreshTokenHash) {
		return nil, nil, apperrors.Unauthorized("invalid refresh token")
	}

	// A token expiring exactly now is already expired.
	if user.RefreshTokenExpiresAt == nil || !s.tokens.Now().Before(*user.RefreshTokenExpiresAt) {
		return nil, nil, &apperrors.AppError{
			Code:    CodeRefreshExpired,
			Message: "refresh token expired",
			Status:  http.StatusUnauthorized,
			Err:     apperrors.ErrUnauthorized,
		}
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))

	return user, pair, nil
}

// AssignRole grants a role to the user with the given ID. Only admins may
// assign roles; the check lives here, not just at the route, so the service
// enforces it for any transport. The grant is additive and idempotent:
// existing roles are kept, and re-granting a held role succeeds without
// change.
func (s *AuthService) AssignRole(ctx context.Context, caller *auth.Claims, targetUserID, roleName string) error {
	if !hasRole(caller.Roles, domain.RoleAdmin) {
		return apperrors.Forbidden("Unauthorized: Admins only")
	}

	if strings.TrimSpace(targetUserID) == "" {
		return apperrors.InvalidInput("user id is required")
	}

	role, ok := domain.ParseRole(roleName)
	if !ok {
		return apperrors.InvalidInput("unknown role: " + roleName)
	}

	user, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}

	if err := s.users.AssignRole(ctx, user.ID, role); err != nil {
		return err
	}

	s.events.RoleAssignedEvent(ctx, user.ID, role, caller.UserID())

	s.logger.InfoContext(ctx, "role assigned",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
		slog.String("assigned_by", caller.UserID()),
	)

	return nil
}

// Logout clears the stored refresh token, ending the user's session.
// Logging out an already logged-out user succeeds.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateRefreshToken(ctx, userID, nil, nil); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// Profile returns the user's account data, including the vendor profile for
// users holding the Vendor role.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, *domain.VendorProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	var profile *domain.VendorProfile
	if user.HasRole(domain.RoleVendor) {
		profile, err = s.vendors.GetByUserID(ctx, userID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, err
		}
	}

	return user, profile, nil
}

// issueTokens creates an access/refresh pair and persists the refresh digest
// on the user record. Two concurrent refreshes race on this write; the last
// writer wins and the loser's pair stops working on its next use.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.Wrap(err, "issue access token")
	}

	refreshToken, digest, expiresAt, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, apperrors.Wrap(err, "generate refresh token")
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, &digest, &expiresAt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func hasRole(roles []string, want domain.Role) bool {
	for _, r := range roles {
		if r == string(want) {
			return true
		}
	}
	return false
}

// ValidatePassword checks the password policy and returns every violation,
// not just the first, so clients can show the full list.
func ValidatePassword(password string) []string {
	var violations []string

	if len(password) < 8 {
		violations = append(violations, "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}
	if !hasSpecial {
		violations = append(violations, "password must contain at least one special character")
	}

	return violations
}
