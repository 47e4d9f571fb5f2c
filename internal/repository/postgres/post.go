package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO posts (id, caption, image_url, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		post.ID, post.Caption, post.ImageURL, post.UserID, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating post for user %s: %w", post.UserID, err)
	}
	return nil
}

func (db *DB) ListPostsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Post, error) {
	opts = opts.Normalize()

	rows, err := db.pool.Query(ctx,
		`SELECT id, caption, image_url, user_id, created_at
		 FROM posts
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts for user %s: %w", userID, err)
	}

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Post, error) {
		var p model.Post
		err := row.Scan(&p.ID, &p.Caption, &p.ImageURL, &p.UserID, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning posts: %w", err)
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}
