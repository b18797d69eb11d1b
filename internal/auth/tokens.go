package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
)

// Claims represents the JWT claims for an access token. Roles carries every
// role the user holds so the HTTP gate can evaluate policies without a
// database round trip.
type Claims struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenManager issues and validates access tokens and generates opaque
// refresh tokens. The clock is injectable so expiry boundaries can be tested
// deterministically.
type TokenManager struct {
	secret        []byte
	issuer        string
	audience      string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewTokenManager creates a token manager with the given signing secret,
// issuer/audience pair, and expiry durations.
func NewTokenManager(secret, issuer, audience string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:        []byte(secret),
		issuer:        issuer,
		audience:      audience,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

// WithClock replaces the manager's time source. Intended for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Now returns the manager's current time. Callers that compare stored expiry
// timestamps should use this so tests can control the clock.
func (m *TokenManager) Now() time.Time {
	return m.now().UTC()
}

// RefreshExpiry returns the configured refresh token lifetime.
func (m *TokenManager) RefreshExpiry() time.Duration {
	return m.refreshExpiry
}

// IssueAccessToken creates a signed HS256 access token for the user. The
// token carries a unique jti so individual tokens are distinguishable even
// when issued within the same second.
func (m *TokenManager) IssueAccessToken(user *domain.User) (string, error) {
	now := m.Now()
	claims := &Claims{
		Email: user.Email,
		Name:  user.FirstName + " " + user.LastName,
		Roles: user.RoleNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// NewRefreshToken generates an opaque refresh token from 64 bytes of
// cryptographic randomness. It returns the raw base64 token (sent to the
// client), its digest (stored server-side), and the expiry timestamp.
func (m *TokenManager) NewRefreshToken() (raw, digest string, expiresAt time.Time, err error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", "", time.Time{}, fmt.Errorf("generate refresh token: %w", err)
	}

	raw = base64.StdEncoding.EncodeToString(buf)
	return raw, HashRefreshToken(raw), m.Now().Add(m.refreshExpiry), nil
}

// HashRefreshToken returns the hex-encoded SHA-256 digest of a raw refresh
// token. The token itself carries 512 bits of entropy, so an unsalted digest
// is not brute-forceable from a leaked database.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyRefreshToken compares a presented raw token against the stored
// digest in constant time.
func VerifyRefreshToken(raw, storedDigest string) bool {
	digest := HashRefreshToken(raw)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedDigest)) == 1
}

// ValidateAccessToken parses and fully validates an access token: signature,
// algorithm, issuer, audience, and lifetime against the manager's clock.
func (m *TokenManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}

// ParseExpiredToken parses an access token for the refresh flow. Signature,
// algorithm, issuer, and audience are still enforced; only the lifetime
// check is skipped, so a client can exchange an expired-but-genuine access
// token together with its refresh token.
func (m *TokenManager) ParseExpiredToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	// WithoutClaimsValidation skips issuer/audience too, so check them here.
	if claims.Issuer != m.issuer {
		return nil, fmt.Errorf("unexpected token issuer")
	}
	audOK := false
	for _, aud := range claims.Audience {
		if aud == m.audience {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, fmt.Errorf("unexpected token audience")
	}

	return claims, nil
}

func (m *TokenManager) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return m.secret, nil
}
