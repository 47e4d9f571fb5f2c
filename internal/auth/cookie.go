package auth

import (
	"net/http"
	"time"
)

// CookieName is the name of the session cookie.
const CookieName = "token"

// CookieOptions controls the attributes of the session cookie.
// Secure is enabled in production, where the API is served over HTTPS.
type CookieOptions struct {
	Secure bool
	TTL    time.Duration
}

// SessionCookie builds the cookie that carries a freshly issued token.
//
// Attributes:
//   - HttpOnly: not readable from JavaScript
//   - SameSite=Strict: never sent on cross-site requests
//   - Expires/Max-Age: the token lifetime, so cookie and JWT expire together
func SessionCookie(token string, opts CookieOptions) *http.Cookie {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearSessionCookie builds a cookie that deletes the session cookie.
// It repeats the attributes used when setting it; browsers only drop a cookie
// whose name, path and flags match.
func ClearSessionCookie(opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
