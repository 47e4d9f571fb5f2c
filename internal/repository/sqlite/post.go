package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

// CreatePost inserts a post. The caller fills Caption, ImageURL and UserID.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, caption, image_url, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		post.ID,
		post.Caption,
		post.ImageURL,
		post.UserID,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post for user %s: %w", post.UserID, err)
	}

	return nil
}

// ListPostsByUser returns userID's posts, newest first.
func (db *DB) ListPostsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Post, error) {
	opts = opts.Normalize()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, caption, image_url, user_id, created_at
		 FROM posts
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts for user %s: %w", userID, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Caption, &p.ImageURL, &p.UserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}

	return posts, nil
}
