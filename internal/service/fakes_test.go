package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory repository.Store. Set the *Err fields to simulate
// database failures.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	posts  []model.Post
	nextID int

	createUserErr error
	getUserErr    error
	createPostErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*model.User)}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username already in use")
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	for _, u := range f.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) CreatePost(_ context.Context, post *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createPostErr != nil {
		return f.createPostErr
	}
	post.ID = f.id("post")
	post.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	f.posts = append(f.posts, *post)
	return nil
}

func (f *fakeStore) ListPostsByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Post{}
	for _, p := range f.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Offset >= len(out) {
		return []model.Post{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

// fakeRevoker records revoked token IDs.
type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: make(map[string]time.Time)}
}

func (f *fakeRevoker) Revoke(_ context.Context, id string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revoked[id] = until
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[id]
	return ok, f.err
}
