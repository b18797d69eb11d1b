package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/internal/event"
	apperrors "github.com/jihadsmadi/kindearth-backend/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *mockUserRepository) UpdateRefreshToken(ctx context.Context, userID string, digest *string, expiresAt *time.Time) error {
	args := m.Called(ctx, userID, digest, expiresAt)
	return args.Error(0)
}

// --- Mock Vendor Profile Repository ---

type mockVendorRepository struct {
	mock.Mock
}

func (m *mockVendorRepository) Create(ctx context.Context, profile *domain.VendorProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockVendorRepository) GetByUserID(ctx context.Context, userID string) (*domain.VendorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VendorProfile), args.Error(1)
}

func (m *mockVendorRepository) Update(ctx context.Context, profile *domain.VendorProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager(
		"test-secret-key-for-service-tests",
		"kindearth", "kindearth-clients",
		15*time.Minute, 168*time.Hour,
	)
}

func newTestService(users *mockUserRepository, vendors *mockVendorRepository, tokens *auth.TokenManager) *AuthService {
	logger := newTestLogger()
	// A nil producer drops all events.
	return NewAuthService(users, vendors, tokens, event.NewProducer(nil, logger), logger)
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func adminClaims() *auth.Claims {
	return &auth.Claims{
		Roles: []string{"Admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "admin-id",
		},
	}
}

func customerClaims() *auth.Claims {
	return &auth.Claims{
		Roles: []string{"Customer"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "customer-id",
		},
	}
}

// --- Register Tests ---

func TestRegister_DefaultsToCustomer(t *testing.T) {
	users := new(mockUserRepository)
	vendors := new(mockVendorRepository)
	svc := newTestService(users, vendors, newTestTokens())
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "john@example.com",
		Password:  "SecurePass1!",
		FirstName: "John",
		LastName:  "Doe",
		Phone:     "+15550100",
	})

	require.NoError(t, err)
	assert.Equal(t, "john@example.com", user.Email)
	assert.Equal(t, []domain.Role{domain.RoleCustomer}, user.Roles)
	assert.Nil(t, user.RefreshTokenHash, "registration must not start a session")
	assert.NotEqual(t, "SecurePass1!", user.PasswordHash)

	users.AssertExpectations(t)
	vendors.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	users := new(mockUserRepository)
	vendors := new(mockVendorRepository)
	svc := newTestService(users, vendors, newTestTokens())
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "  John@Example.COM ",
		Password:  "SecurePass1!",
		FirstName: "John",
		LastName:  "Doe",
		Phone:     "+15550100",
	})

	require.NoError(t, err)
	assert.Equal(t, "john@example.com", user.Email)
}

func TestRegister_VendorCreatesProfile(t *testing.T) {
	users := new(mockUserRepository)
	vendors := new(mockVendorRepository)
	svc := newTestService(users, vendors, newTestTokens())
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	vendors.On("Create", ctx, mock.MatchedBy(func(p *domain.VendorProfile) bool {
		return p.StoreName == "Jane's Shoes"
	})).Return(nil)

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass1!",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "+15550101",
		Role:      domain.RoleVendor,
		StoreName: "Jane's Shoes",
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleVendor}, user.Roles)

	users.AssertExpectations(t)
	vendors.AssertExpectations(t)
}

func TestRegister_VendorProfileFailureKeepsAccount(t *testing.T) {
	users := new(mockUserRepository)
	vendors := new(mockVendorRepository)
	svc := newTestService(users, vendors, newTestTokens())
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	vendors.On("Create", ctx, mock.AnythingOfType("*domain.VendorProfile")).
		Return(errors.New("connection reset"))

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass1!",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "+15550101",
		Role:      domain.RoleVendor,
		StoreName: "Jane's Shoes",
	})

	// The user row is committed before the profile insert, so a profile
	// failure must not turn the registration into an error.
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, []domain.Role{domain.RoleVendor}, user.Roles)

	users.AssertExpectations(t)
	vendors.AssertExpectations(t)
}

func TestRegister_VendorWithoutStoreName(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "jane@example.com",
		Password:  "SecurePass1!",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "+15550101",
		Role:      domain.RoleVendor,
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_MissingPhone(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "john@example.com",
		Password:  "SecurePass1!",
		FirstName: "John",
		LastName:  "Doe",
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "evil@example.com",
		Password:  "SecurePass1!",
		FirstName: "Evil",
		LastName:  "User",
		Phone:     "+15550102",
		Role:      domain.RoleAdmin,
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_WeakPassword_ListsAllViolations(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	// Missing both an uppercase letter and a special character.
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "john@example.com",
		Password:  "password1",
		FirstName: "John",
		LastName:  "Doe",
		Phone:     "+15550100",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields["password"], "uppercase")
	assert.Contains(t, appErr.Fields["password"], "special")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "john@example.com"))

	_, err := svc.Register(ctx, RegisterInput{
		Email:     "john@example.com",
		Password:  "SecurePass1!",
		FirstName: "John",
		LastName:  "Doe",
		Phone:     "+15550100",
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	stored := &domain.User{
		ID:           "user-1",
		Email:        "john@example.com",
		PasswordHash: hashForTest("SecurePass1!"),
		Roles:        []domain.Role{domain.RoleCustomer},
	}

	users.On("GetByEmail", ctx, "john@example.com").Return(stored, nil)
	users.On("UpdateRefreshToken", ctx, "user-1",
		mock.AnythingOfType("*string"), mock.AnythingOfType("*time.Time")).Return(nil)

	user, pair, err := svc.Login(ctx, "john@example.com", "SecurePass1!")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	users.AssertExpectations(t)
}

func TestLogin_WrongPasswordAndUnknownEmail_SameError(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	stored := &domain.User{
		ID:           "user-1",
		Email:        "john@example.com",
		PasswordHash: hashForTest("SecurePass1!"),
		Roles:        []domain.Role{domain.RoleCustomer},
	}

	users.On("GetByEmail", ctx, "john@example.com").Return(stored, nil)
	users.On("GetByEmail", ctx, "ghost@example.com").
		Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	_, _, errWrongPass := svc.Login(ctx, "john@example.com", "wrong-password")
	_, _, errNoUser := svc.Login(ctx, "ghost@example.com", "whatever")

	require.Error(t, errWrongPass)
	require.Error(t, errNoUser)

	var appErr1, appErr2 *apperrors.AppError
	require.ErrorAs(t, errWrongPass, &appErr1)
	require.ErrorAs(t, errNoUser, &appErr2)
	assert.Equal(t, appErr1.Message, appErr2.Message,
		"response must not reveal whether the email exists")
	assert.Equal(t, "invalid email or password", appErr1.Message)
}

// --- Refresh Tests ---

// loginFor runs a full login and returns the user (with the stored digest
// captured from the repository write) and the issued pair.
func loginFor(t *testing.T, users *mockUserRepository, svc *AuthService, password string) (*domain.User, *domain.TokenPair) {
	t.Helper()
	ctx := context.Background()

	stored := &domain.User{
		ID:           "user-1",
		Email:        "john@example.com",
		PasswordHash: hashForTest(password),
		Roles:        []domain.Role{domain.RoleCustomer},
	}

	users.On("GetByEmail", ctx, "john@example.com").Return(stored, nil)
	users.On("UpdateRefreshToken", ctx, "user-1",
		mock.AnythingOfType("*string"), mock.AnythingOfType("*time.Time")).
		Run(func(args mock.Arguments) {
			stored.RefreshTokenHash = args.Get(2).(*string)
			stored.RefreshTokenExpiresAt = args.Get(3).(*time.Time)
		}).Return(nil)

	_, pair, err := svc.Login(ctx, "john@example.com", password)
	require.NoError(t, err)
	return stored, pair
}

func TestRefresh_RotatesTokens(t *testing.T) {
	users := new(mockUserRepository)
	tokens := newTestTokens()
	svc := newTestService(users, new(mockVendorRepository), tokens)
	ctx := context.Background()

	stored, pair := loginFor(t, users, svc, "SecurePass1!")
	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	firstDigest := *stored.RefreshTokenHash

	_, newPair, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)
	assert.NotEqual(t, firstDigest, *stored.RefreshTokenHash, "stored digest must rotate")

	// Replaying the old refresh token now fails.
	_, _, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid refresh token", appErr.Message)
}

func TestRefresh_AcceptsExpiredAccessToken(t *testing.T) {
	users := new(mockUserRepository)
	tokens := newTestTokens()
	svc := newTestService(users, new(mockVendorRepository), tokens)
	ctx := context.Background()

	stored, pair := loginFor(t, users, svc, "SecurePass1!")
	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	// Advance past the access expiry but not the refresh expiry.
	tokens.WithClock(func() time.Time { return time.Now().Add(time.Hour) })

	_, newPair, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)
}

func TestRefresh_InvalidAccessToken(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	_, _, err := svc.Refresh(context.Background(), "not-a-jwt", "some-refresh-token")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid access token", appErr.Message)
}

func TestRefresh_MismatchedRefreshToken(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	stored, pair := loginFor(t, users, svc, "SecurePass1!")
	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	_, _, err := svc.Refresh(ctx, pair.AccessToken, "tampered-refresh-token")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid refresh token", appErr.Message)
	assert.NotEqual(t, CodeRefreshExpired, appErr.Code)
}

func TestRefresh_ExpiredRefreshToken(t *testing.T) {
	users := new(mockUserRepository)
	tokens := newTestTokens()
	svc := newTestService(users, new(mockVendorRepository), tokens)
	ctx := context.Background()

	stored, pair := loginFor(t, users, svc, "SecurePass1!")
	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	// Move the clock past the stored refresh expiry.
	expiry := *stored.RefreshTokenExpiresAt
	tokens.WithClock(func() time.Time { return expiry.Add(time.Second) })

	_, _, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeRefreshExpired, appErr.Code)
}

func TestRefresh_ExpiryBoundaryIsExpired(t *testing.T) {
	users := new(mockUserRepository)
	tokens := newTestTokens()
	svc := newTestService(users, new(mockVendorRepository), tokens)
	ctx := context.Background()

	stored, pair := loginFor(t, users, svc, "SecurePass1!")
	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	// Exactly at the expiry instant the token is already expired.
	expiry := *stored.RefreshTokenExpiresAt
	tokens.WithClock(func() time.Time { return expiry })

	_, _, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeRefreshExpired, appErr.Code)

	// One second earlier it is still valid.
	tokens.WithClock(func() time.Time { return expiry.Add(-time.Second) })
	_, _, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_NoStoredToken(t *testing.T) {
	users := new(mockUserRepository)
	tokens := newTestTokens()
	svc := newTestService(users, new(mockVendorRepository), tokens)
	ctx := context.Background()

	stored := &domain.User{
		ID:    "user-1",
		Email: "john@example.com",
		Roles: []domain.Role{domain.RoleCustomer},
	}
	access, err := tokens.IssueAccessToken(stored)
	require.NoError(t, err)

	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	_, _, err = svc.Refresh(ctx, access, "any-refresh-token")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "invalid refresh token", appErr.Message)
}

// --- AssignRole Tests ---

func TestAssignRole_Success(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	target := &domain.User{ID: "user-2", Email: "jane@example.com", Roles: []domain.Role{domain.RoleCustomer}}
	users.On("GetByID", ctx, "user-2").Return(target, nil)
	users.On("AssignRole", ctx, "user-2", domain.RoleVendor).Return(nil)

	err := svc.AssignRole(ctx, adminClaims(), "user-2", "Vendor")

	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestAssignRole_Idempotent(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	target := &domain.User{ID: "user-2", Email: "jane@example.com", Roles: []domain.Role{domain.RoleVendor}}
	users.On("GetByID", ctx, "user-2").Return(target, nil)
	users.On("AssignRole", ctx, "user-2", domain.RoleVendor).Return(nil).Twice()

	require.NoError(t, svc.AssignRole(ctx, adminClaims(), "user-2", "Vendor"))
	require.NoError(t, svc.AssignRole(ctx, adminClaims(), "user-2", "Vendor"))
}

func TestAssignRole_NonAdminRejected(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())

	err := svc.AssignRole(context.Background(), customerClaims(), "user-2", "Vendor")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Unauthorized: Admins only", appErr.Message)

	users.AssertNotCalled(t, "AssignRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignRole_UnknownRole(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	err := svc.AssignRole(context.Background(), adminClaims(), "user-2", "Superuser")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAssignRole_RoleNamesAreCaseSensitive(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	err := svc.AssignRole(context.Background(), adminClaims(), "user-2", "vendor")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAssignRole_MissingUserID(t *testing.T) {
	svc := newTestService(new(mockUserRepository), new(mockVendorRepository), newTestTokens())

	err := svc.AssignRole(context.Background(), adminClaims(), "  ", "Vendor")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Logout Tests ---

func TestLogout_ClearsStoredToken(t *testing.T) {
	users := new(mockUserRepository)
	svc := newTestService(users, new(mockVendorRepository), newTestTokens())
	ctx := context.Background()

	users.On("UpdateRefreshToken", ctx, "user-1", (*string)(nil), (*time.Time)(nil)).Return(nil)

	require.NoError(t, svc.Logout(ctx, "user-1"))
	users.AssertExpectations(t)
}

// --- Profile Tests ---

func TestProfile_VendorIncludesStorefront(t *testing.T) {
	users := new(mockUserRepository)
	vendors := new(mockVendorRepository)
	svc := newTestService(users, vendors, newTestTokens())
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Roles: []domain.Role{domain.RoleVendor}}
	profile := &domain.VendorProfile{ID: "vp-1", UserID: "user-1", StoreName: "Jane's Shoes"}

	users.On("GetByID", ctx, "user-1").Return(stored, nil)
	vendors.On("GetByUserID", ctx, "user-1").Return(profile, nil)

	user, vp, err := svc.Profile(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, stored, user)
	assert.Equal(t, "Jane's Shoes", vp.StoreName)
}

func TestProfile_CustomerHasNoStorefront(t *testing.T) {
	users := new(mockUserRepository)
	vendors := new(mockVendorRepository)
	svc := newTestService(users, vendors, newTestTokens())
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Roles: []domain.Role{domain.RoleCustomer}}
	users.On("GetByID", ctx, "user-1").Return(stored, nil)

	_, vp, err := svc.Profile(ctx, "user-1")

	require.NoError(t, err)
	assert.Nil(t, vp)
	vendors.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

// --- Password Policy Tests ---

func TestValidatePassword(t *testing.T) {
	assert.Empty(t, ValidatePassword("Password1!"))
	assert.Empty(t, ValidatePassword("Tr0ub4dor&3"))

	assert.Len(t, ValidatePassword("password1"), 2) // no uppercase, no special
	assert.Len(t, ValidatePassword("Pw1!"), 1)      // too short
	assert.Len(t, ValidatePassword(""), 5)
	assert.Len(t, ValidatePassword("PASSWORD1!"), 1) // no lowercase
	assert.Len(t, ValidatePassword("Password!!"), 1) // no digit
}
