// Package imagekit uploads images to ImageKit's media library through the
// official imagekit-go SDK.
package imagekit

import (
	"context"
	"errors"
	"fmt"

	ikgo "github.com/imagekit-developer/imagekit-go"
	"github.com/imagekit-developer/imagekit-go/api/uploader"

	"github.com/sakif/captionly/internal/imagestore"
	"github.com/sakif/captionly/internal/model"
)

var _ imagestore.Store = (*Client)(nil)

const DefaultFolder = "ai-social"

// Config configures the client. Only PrivateKey is needed to upload; the
// public key and URL endpoint are passed through to the SDK when set.
// UploadPrefix overrides the SDK's upload API base URL and must end in "/".
type Config struct {
	PrivateKey   string
	PublicKey    string
	URLEndpoint  string
	UploadPrefix string
	Folder       string
}

type Client struct {
	ik     *ikgo.ImageKit
	folder string
}

func New(cfg Config) (*Client, error) {
	if cfg.PrivateKey == "" {
		return nil, errors.New("imagekit: private key is required")
	}

	ik := ikgo.NewFromParams(ikgo.NewParams{
		PrivateKey:  cfg.PrivateKey,
		PublicKey:   cfg.PublicKey,
		UrlEndpoint: cfg.URLEndpoint,
	})
	if cfg.UploadPrefix != "" {
		ik.Uploader.Config.API.UploadPrefix = cfg.UploadPrefix
	}

	c := &Client{ik: ik, folder: cfg.Folder}
	if c.folder == "" {
		c.folder = DefaultFolder
	}
	return c, nil
}

// Upload sends img as a base64 file under name and returns the hosted URL.
// ImageKit appends a random suffix to name, so repeated names never collide.
func (c *Client) Upload(ctx context.Context, name string, img *model.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", errors.New("imagekit: empty image")
	}
	img.Encode()

	unique := true
	resp, err := c.ik.Uploader.Upload(ctx, img.Encoded, uploader.UploadParam{
		FileName:          name,
		Folder:            c.folder,
		UseUniqueFileName: &unique,
	})
	if err != nil {
		return "", fmt.Errorf("imagekit: uploading %s: %w", name, err)
	}
	if resp == nil || resp.Data.Url == "" {
		return "", errors.New("imagekit: response has no url")
	}
	return resp.Data.Url, nil
}
