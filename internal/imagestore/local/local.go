// Package local stores images on the server's disk. It is meant for
// development, where no ImageKit account is available.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/captionly/internal/imagestore"
	"github.com/sakif/captionly/internal/model"
)

var _ imagestore.Store = (*Store)(nil)

// URLPrefix is the path the server mounts the upload directory on.
const URLPrefix = "/uploads/"

type Store struct {
	dir     string
	baseURL string
}

// New creates dir if needed. Upload returns baseURL + "/uploads/" + name.
func New(dir, baseURL string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("local: upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local: creating %s: %w", dir, err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Upload(ctx context.Context, name string, img *model.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil || len(img.Data) == 0 {
		return "", errors.New("local: empty image")
	}

	// Names come from imagestore.NewName; reject anything that could escape dir.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("local: invalid file name %q", name)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("local: creating %s: %w", name, err)
	}
	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("local: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("local: closing %s: %w", name, err)
	}

	return s.baseURL + URLPrefix + name, nil
}
