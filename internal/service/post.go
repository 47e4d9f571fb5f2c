package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/caption"
	"github.com/sakif/captionly/internal/imagestore"
	"github.com/sakif/captionly/internal/metrics"
	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

// PostService turns an uploaded image into a captioned, hosted post.
type PostService struct {
	posts     repository.PostRepository
	captioner caption.Generator
	images    imagestore.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	captioner caption.Generator,
	images imagestore.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:     posts,
		captioner: captioner,
		images:    images,
		metrics:   m,
		logger:    logger,
	}
}

// Create captions and uploads img concurrently, then persists the post.
//
// FLOW:
//  1. Encode the image once; both collaborators read the same encoding
//  2. Start caption generation and upload together
//  3. Wait for both. The first failure cancels the other call and is returned
//     as an upstream error; nothing is persisted
//  4. Insert the post with the caption and the hosted URL
func (s *PostService) Create(ctx context.Context, userID string, img *model.Image) (*model.Post, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("user not found")
	}
	if img == nil || len(img.Data) == 0 {
		return nil, apperror.ValidationFailed("image", "image file is required")
	}
	if !strings.HasPrefix(img.MIMEType, "image/") {
		return nil, apperror.ValidationFailed("image", "uploaded file must be an image")
	}

	img.Encode()
	name := imagestore.NewName(img.MIMEType)

	var captionText, imageURL string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		c, err := s.captioner.Generate(gctx, img)
		s.metrics.ObserveUpstream("caption", time.Since(start), err)
		if err != nil {
			return apperror.Upstream("failed to generate caption", err)
		}
		captionText = c
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		url, err := s.images.Upload(gctx, name, img)
		s.metrics.ObserveUpstream("image_store", time.Since(start), err)
		if err != nil {
			return apperror.Upstream("failed to upload image", err)
		}
		imageURL = url
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logUpstream(userID, name, err)
		return nil, err
	}

	post := &model.Post{
		Caption:  captionText,
		ImageURL: imageURL,
		UserID:   userID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: saving post for user %s: %w", userID, err)
	}

	s.metrics.PostCreated()
	s.logger.Info("post created",
		slog.String("postID", post.ID),
		slog.String("userID", userID),
		slog.String("image", name),
	)

	return post, nil
}

func (s *PostService) logUpstream(userID, name string, err error) {
	attrs := []any{
		slog.String("userID", userID),
		slog.String("image", name),
		slog.String("error", err.Error()),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
	}
	s.logger.Error("post creation failed", attrs...)
}

// List returns the user's posts, newest first.
func (s *PostService) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Post, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("user not found")
	}
	posts, err := s.posts.ListPostsByUser(ctx, userID, opts.Normalize())
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts for user %s: %w", userID, err)
	}
	return posts, nil
}
