// Package auth provides session tokens, password hashing, token revocation
// and the authentication middleware for the API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /api/auth/register or /api/auth/login verifies the credentials
//  2. The server issues a signed JWT and stores it in the HttpOnly "token" cookie
//  3. On later requests RequireAuth reads the cookie, validates the JWT, loads
//     the user and puts it in the request context
//  4. POST /api/auth/logout clears the cookie and revokes the token id
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","jti":"<tokenID>","iat":...,"exp":...,"iss":"captionly"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer = "captionly"

	// DefaultTokenTTL matches the lifetime of the session cookie.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// Session is the verified content of a token.
type Session struct {
	ID        string // jti, used to revoke the token on logout
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// A zero ttl selects DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of tokens issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. "sub" holds the internal user ID, "jti" a unique
// token ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new JWT for the given userID using the
// service's configured lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a user ID")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Parse verifies a JWT string and returns its session.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired and carries an expiry
//   - Issuer matches
//   - Algorithm is HS256 (blocks "alg":"none" and key-confusion tokens)
func (s *TokenService) Parse(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	sess := &Session{
		ID:     c.ID,
		UserID: c.Subject,
	}
	if c.IssuedAt != nil {
		sess.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess, nil
}

// Validate parses a JWT string and returns the userID stored in its "sub" claim.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	sess, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}
