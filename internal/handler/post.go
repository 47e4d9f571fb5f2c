package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/auth"
	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

const (
	DefaultMaxUploadBytes = 10 << 20

	// multipartOverhead leaves room for boundaries and part headers.
	multipartOverhead = 64 << 10
	imageField        = "image"
)

// PostService is the part of service.PostService the handlers use.
type PostService interface {
	Create(ctx context.Context, userID string, img *model.Image) (*model.Post, error)
	List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Post, error)
}

type PostHandler struct {
	svc            PostService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewPostHandler creates a PostHandler. maxUploadBytes <= 0 selects
// DefaultMaxUploadBytes.
func NewPostHandler(svc PostService, maxUploadBytes int64, logger *slog.Logger) *PostHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &PostHandler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// PostResponse is the body of a successful post creation.
type PostResponse struct {
	Message string      `json:"message"`
	Post    *model.Post `json:"post"`
}

// ListPostsResponse is the body of GET /api/post.
type ListPostsResponse struct {
	Posts []model.Post `json:"posts"`
}

// HandleCreate accepts one image and answers with the captioned post.
//
// HTTP: POST /api/post (multipart/form-data, file field "image")
// 201 {"message", "post"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("no token"))
		return
	}

	img, err := h.readImage(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	post, err := h.svc.Create(r.Context(), userID, img)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, PostResponse{
		Message: "post created successfully",
		Post:    post,
	})
}

// readImage extracts the "image" file from a multipart request.
//
// The declared part Content-Type is used when it names an image; otherwise
// the type is sniffed from the first bytes of the file.
func (h *PostHandler) readImage(w http.ResponseWriter, r *http.Request) (*model.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.ValidationFailed(imageField,
				fmt.Sprintf("image must be at most %d bytes", h.maxUploadBytes))
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, apperror.ValidationFailed(imageField, "image file is required")
		}
		return nil, apperror.ValidationFailed(imageField, "invalid multipart body")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(imageField)
	if err != nil {
		return nil, apperror.ValidationFailed(imageField, "image file is required")
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		return nil, apperror.ValidationFailed(imageField,
			fmt.Sprintf("image must be at most %d bytes", h.maxUploadBytes))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("handler: reading upload: %w", err)
	}
	if len(data) == 0 {
		return nil, apperror.ValidationFailed(imageField, "image file is empty")
	}

	mimeType := detectImageType(header.Header.Get("Content-Type"), data)
	if mimeType == "" {
		return nil, apperror.ValidationFailed(imageField, "uploaded file must be an image")
	}

	return &model.Image{
		Data:     data,
		MIMEType: mimeType,
		Filename: header.Filename,
	}, nil
}

// detectImageType returns the image MIME type of data, or "" if it is not an image.
func detectImageType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}

// HandleList returns the caller's posts, newest first.
//
// HTTP: GET /api/post?limit=20&offset=0
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("no token"))
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	posts, err := h.svc.List(r.Context(), userID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ListPostsResponse{Posts: posts})
}

func parseListOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, apperror.ValidationFailed("limit", "limit must be a positive integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("offset", "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts.Normalize(), nil
}
