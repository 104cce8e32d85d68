package authcore

import (
	"net/http"
	"time"
)

// TokenCookieName is the cookie the gate falls back to when no
// Authorization header is present.
const TokenCookieName = "access_token"

// TokenCookie shapes the session cookie for a freshly issued token:
// httpOnly, strict same-site, lifetime matching the token's.
func TokenCookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearTokenCookie expires the session cookie on logout.
func ClearTokenCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
