package http

import (
	"net/http"
	"time"

	"github.com/jihadsmadi/kindearth-backend/internal/domain"
)

// Cookie names for token delivery.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieManager writes and clears the auth cookies. Both cookies are
// HttpOnly so scripts can never read them. In development Secure is off and
// SameSite is Lax so plain-HTTP localhost flows work; everywhere else the
// cookies are Secure and Strict.
type CookieManager struct {
	secure        bool
	sameSite      http.SameSite
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewCookieManager creates a cookie manager for the given environment.
func NewCookieManager(environment string, accessExpiry, refreshExpiry time.Duration) *CookieManager {
	dev := environment == "development"

	sameSite := http.SameSiteStrictMode
	if dev {
		sameSite = http.SameSiteLaxMode
	}

	return &CookieManager{
		secure:        !dev,
		sameSite:      sameSite,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// SetTokens writes both token cookies. Each cookie lives as long as the
// token it carries.
func (c *CookieManager) SetTokens(w http.ResponseWriter, pair *domain.TokenPair) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, pair.AccessToken, c.accessExpiry))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, pair.RefreshToken, c.refreshExpiry))
}

// Clear expires both token cookies immediately.
func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, "", -time.Hour))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", -time.Hour))
}

func (c *CookieManager) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	}
}
