// Package imagestore defines where uploaded images are hosted.
package imagestore

import (
	"context"
	"mime"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/captionly/internal/model"
)

// Store hosts an image and returns its public URL.
// Implementations must honor ctx cancellation.
type Store interface {
	Upload(ctx context.Context, name string, img *model.Image) (string, error)
}

var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
	"image/heic":    ".heic",
}

// NewName returns a fresh unique file name carrying the extension for mimeType.
func NewName(mimeType string) string {
	return uuid.NewString() + Extension(mimeType)
}

// Extension returns the file extension for mimeType, or "" if unknown.
func Extension(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if ext, ok := extensions[mt]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
