// Package service contains the business logic of the API.
//
// Handlers parse HTTP and write responses; services validate input, enforce
// the rules and orchestrate repositories and external clients:
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService, PasswordService, Revoker
//	PostHandler → PostService → PostRepository
//	                          ↘ caption.Generator, imagestore.Store
//
// Services return apperror values and never know about status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/auth"
	"github.com/sakif/captionly/internal/metrics"
	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

const MaxUsernameLength = 64

// AuthService registers and authenticates users.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoker   auth.Revoker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAuthService wires the dependencies. A nil revoker disables revocation;
// nil metrics disables counting.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoker auth.Revoker,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthService {
	if revoker == nil {
		revoker = auth.NopRevoker{}
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		revoker:   revoker,
		metrics:   m,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued token so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

func validateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", apperror.ValidationFailed("username", "username and password are required")
	}
	if len(username) > MaxUsernameLength {
		return "", apperror.ValidationFailed("username",
			fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return username, nil
}

// Register creates an account and issues a token for it.
//
// The lookup gives the common case a clean error; the store's uniqueness
// constraint catches two registrations racing for the same name.
func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	username, err := validateCredentials(username, password)
	if err != nil {
		return nil, err
	}

	_, err = s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, apperror.Conflict("username already in use")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking username %q: %w", username, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.metrics.UserRegistered()
	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login verifies the credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username, err := validateCredentials(username, password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: looking up user %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrMismatch) {
			s.logger.Info("login rejected", slog.String("username", username))
			return nil, apperror.InvalidCredentials("invalid password")
		}
		return nil, fmt.Errorf("service/auth: verifying password for %q: %w", username, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes the presented session until it expires. A nil session (no
// or invalid cookie) is a no-op. Revocation failures are logged, not
// returned, so logout always succeeds for the client.
func (s *AuthService) Logout(ctx context.Context, sess *auth.Session) {
	if sess == nil {
		return
	}
	if err := s.revoker.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
		s.logger.Error("failed to revoke token",
			slog.String("tokenID", sess.ID),
			slog.String("userID", sess.UserID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("user logged out", slog.String("userID", sess.UserID))
}

// GetUserByID returns the user with the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("user not found")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// Tokens exposes the token service for the auth middleware and cookie TTL.
func (s *AuthService) Tokens() *auth.TokenService {
	return s.tokens
}
