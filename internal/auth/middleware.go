package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/model"
)

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the values stored here.
type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
)

// UserLookup loads the account a token refers to.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "token" cookie, validates it, checks that it has
// not been revoked and loads the user it names. The user and the session are
// stored in the request context. Any failure ends the request with 401:
//
//   - no cookie                      → "no token"
//   - bad signature, expired, revoked → "invalid token"
//   - user no longer exists          → "user not found"
func RequireAuth(tokens *TokenService, users UserLookup, revoker Revoker) func(http.Handler) http.Handler {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, "no token")
				return
			}

			sess, err := tokens.Parse(cookie.Value)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			revoked, err := revoker.IsRevoked(r.Context(), sess.ID)
			if err != nil {
				slog.Error("checking token revocation",
					slog.String("token_id", sess.ID),
					slog.String("error", err.Error()),
				)
				unauthorized(w, "invalid token")
				return
			}
			if revoked {
				unauthorized(w, "invalid token")
				return
			}

			user, err := users.GetUserByID(r.Context(), sess.UserID)
			if err != nil {
				if !errors.Is(err, apperror.ErrNotFound) {
					slog.Error("loading session user",
						slog.String("user_id", sess.UserID),
						slog.String("error", err.Error()),
					)
				}
				unauthorized(w, "user not found")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user attached by RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext returns the ID of the user attached by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, u.ID != ""
}

// SessionFromContext returns the verified token attached by RequireAuth.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// WithUser returns a copy of ctx carrying user. Intended for tests of handlers
// that sit behind RequireAuth.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// SessionFromRequest validates the session cookie of r without requiring it.
// Logout uses it to find the token to revoke.
func SessionFromRequest(r *http.Request, tokens *TokenService) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, err
	}
	return tokens.Parse(cookie.Value)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
