// Package repository defines the storage interfaces the services depend on.
//
// Each backend (sqlite, postgres, mongo) implements Store. Implementations
// translate driver errors into apperror values:
//   - missing rows      → apperror.NotFound
//   - duplicate username → apperror.Conflict
package repository

import (
	"context"

	"github.com/sakif/captionly/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions pages through a result set.
type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps the options to the supported range.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type UserRepository interface {
	// CreateUser assigns user.ID and user.CreatedAt and inserts the row.
	// A taken username yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

type PostRepository interface {
	// CreatePost assigns post.ID and post.CreatedAt and inserts the row.
	CreatePost(ctx context.Context, post *model.Post) error
	// ListPostsByUser returns a user's posts, newest first.
	ListPostsByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Post, error)
}

// Store is a complete storage backend.
type Store interface {
	UserRepository
	PostRepository
	Close() error
}
