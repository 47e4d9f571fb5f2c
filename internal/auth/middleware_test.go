package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/model"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

type fakeRevoker struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevoker) Revoke(_ context.Context, id string, _ time.Time) error {
	f.revoked[id] = true
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	return f.revoked[id], f.err
}

// protected echoes the user attached by RequireAuth.
var protected = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(u.Username))
})

func doRequest(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])
	return body["message"]
}

// ===== REQUIRE AUTH TESTS =====

func TestRequireAuth(t *testing.T) {
	tokens := newTestTokenService(t)
	users := fakeUsers{"u1": {ID: "u1", Username: "alice"}}

	valid, err := tokens.Generate("u1")
	require.NoError(t, err)
	expired, err := tokens.GenerateWithDuration("u1", -time.Minute)
	require.NoError(t, err)
	orphan, err := tokens.Generate("deleted-user")
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		wantStatus  int
		wantMessage string
	}{
		{name: "valid token", token: valid, wantStatus: http.StatusOK},
		{name: "missing cookie", token: "", wantStatus: http.StatusUnauthorized, wantMessage: "no token"},
		{name: "garbage token", token: "abc.def.ghi", wantStatus: http.StatusUnauthorized, wantMessage: "invalid token"},
		{name: "tampered token", token: valid[:len(valid)-2] + "zz", wantStatus: http.StatusUnauthorized, wantMessage: "invalid token"},
		{name: "expired token", token: expired, wantStatus: http.StatusUnauthorized, wantMessage: "invalid token"},
		{name: "user deleted", token: orphan, wantStatus: http.StatusUnauthorized, wantMessage: "user not found"},
	}

	h := RequireAuth(tokens, users, nil)(protected)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "alice", rec.Body.String())
				return
			}
			assert.Equal(t, tt.wantMessage, errorMessage(t, rec))
		})
	}
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	tokens := newTestTokenService(t)
	users := fakeUsers{"u1": {ID: "u1", Username: "alice"}}
	revoker := &fakeRevoker{revoked: map[string]bool{}}

	token, err := tokens.Generate("u1")
	require.NoError(t, err)
	sess, err := tokens.Parse(token)
	require.NoError(t, err)

	h := RequireAuth(tokens, users, revoker)(protected)
	assert.Equal(t, http.StatusOK, doRequest(t, h, token).Code)

	require.NoError(t, revoker.Revoke(context.Background(), sess.ID, sess.ExpiresAt))

	rec := doRequest(t, h, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorMessage(t, rec))
}

func TestRequireAuth_RevokerErrorRejects(t *testing.T) {
	tokens := newTestTokenService(t)
	users := fakeUsers{"u1": {ID: "u1", Username: "alice"}}
	revoker := &fakeRevoker{revoked: map[string]bool{}, err: errors.New("redis down")}

	token, _ := tokens.Generate("u1")
	rec := doRequest(t, RequireAuth(tokens, users, revoker)(protected), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_StoresSession(t *testing.T) {
	tokens := newTestTokenService(t)
	users := fakeUsers{"u1": {ID: "u1", Username: "alice"}}
	token, _ := tokens.Generate("u1")

	var gotID string
	h := RequireAuth(tokens, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u1", sess.UserID)
		gotID, _ = UserIDFromContext(r.Context())
	}))

	doRequest(t, h, token)
	assert.Equal(t, "u1", gotID)
}

// ===== CONTEXT TESTS =====

func TestUserIDFromContext_Empty(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), &model.User{ID: "u9"})
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u9", id)
}

// ===== COOKIE TESTS =====

func TestSessionCookie(t *testing.T) {
	c := SessionCookie("jwt-value", CookieOptions{Secure: true, TTL: time.Hour})

	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "jwt-value", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, "/", c.Path)
}

func TestSessionCookie_DefaultTTL(t *testing.T) {
	c := SessionCookie("v", CookieOptions{})
	assert.Equal(t, int(DefaultTokenTTL.Seconds()), c.MaxAge)
	assert.False(t, c.Secure)
}

func TestClearSessionCookie(t *testing.T) {
	c := ClearSessionCookie(CookieOptions{Secure: true})

	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestSessionFromRequest(t *testing.T) {
	tokens := newTestTokenService(t)
	token, _ := tokens.Generate("u1")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	_, err := SessionFromRequest(req, tokens)
	assert.Error(t, err)

	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	sess, err := SessionFromRequest(req, tokens)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
}
