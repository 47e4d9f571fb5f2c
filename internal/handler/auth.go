package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/auth"
	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/service"
)

const maxCredentialsBody = 64 << 10

// Authenticator is the part of service.AuthService the handlers use.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, sess *auth.Session)
}

// AuthHandler serves registration, login, logout and the session check.
type AuthHandler struct {
	svc     Authenticator
	tokens  *auth.TokenService
	cookies auth.CookieOptions
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookies.TTL should equal the token
// lifetime so the cookie and the JWT expire together.
func NewAuthHandler(svc Authenticator, tokens *auth.TokenService, cookies auth.CookieOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		tokens:  tokens,
		cookies: cookies,
		logger:  logger,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the body of every successful auth endpoint except logout.
type UserResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// HandleRegister creates an account and signs the user in.
//
// HTTP: POST /api/auth/register
// Body: {"username": "...", "password": "..."}
// 201 {"message", "user"} with the session cookie set
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxCredentialsBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(res.Token, h.cookies))
	writeJSON(w, http.StatusCreated, UserResponse{
		Message: "user registered successfully",
		User:    res.User,
	})
}

// HandleLogin signs an existing user in.
//
// HTTP: POST /api/auth/login
// 200 {"message", "user"} with the session cookie set
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxCredentialsBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(res.Token, h.cookies))
	writeJSON(w, http.StatusOK, UserResponse{
		Message: "user logged in successfully",
		User:    res.User,
	})
}

// HandleLogout clears the session cookie and revokes the token it carried.
// It succeeds with or without a valid session.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := auth.SessionFromRequest(r, h.tokens); err == nil {
		h.svc.Logout(r.Context(), sess)
	}

	http.SetCookie(w, auth.ClearSessionCookie(h.cookies))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// HandleMe returns the user attached by auth.RequireAuth.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.logger.Error("HandleMe: no user in context; route is missing RequireAuth")
		writeError(w, h.logger, apperror.Unauthorized("no token"))
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{
		Message: "user authenticated",
		User:    user,
	})
}
