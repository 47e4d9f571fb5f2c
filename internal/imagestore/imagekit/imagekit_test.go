package imagekit

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/captionly/internal/model"
)

func newImage() *model.Image {
	return &model.Image{Data: []byte("\xff\xd8\xff fake jpeg"), MIMEType: "image/jpeg", Filename: "cat.jpg"}
}

// newTestClient points the SDK's upload API at srv.
func newTestClient(t *testing.T, srv *httptest.Server, folder string) *Client {
	t.Helper()
	c, err := New(Config{
		PrivateKey:   "private_test_key",
		PublicKey:    "public_test_key",
		URLEndpoint:  "https://ik.imagekit.io/demo",
		UploadPrefix: srv.URL + "/",
		Folder:       folder,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestUpload(t *testing.T) {
	img := newImage()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "private_test_key", user)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, base64.StdEncoding.EncodeToString(img.Data), r.FormValue("file"))
		assert.Equal(t, "abc.jpg", r.FormValue("fileName"))
		assert.Equal(t, DefaultFolder, r.FormValue("folder"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fileId":"f1","name":"abc_x1.jpg","url":"https://ik.imagekit.io/demo/ai-social/abc_x1.jpg"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")

	url, err := c.Upload(context.Background(), "abc.jpg", img)
	require.NoError(t, err)
	assert.Equal(t, "https://ik.imagekit.io/demo/ai-social/abc_x1.jpg", url)
	assert.NotEmpty(t, img.Encoded, "Upload should leave the encoded form on the image")
}

func TestUpload_CustomFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "captions", r.FormValue("folder"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://example.com/x.jpg"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "captions")
	_, err := c.Upload(context.Background(), "x.jpg", newImage())
	assert.NoError(t, err)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "auth failure", status: http.StatusForbidden, body: `{"message":"Your account cannot be authenticated."}`},
		{name: "server error without json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`},
		{name: "missing url", status: http.StatusOK, body: `{"fileId":"f1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv, "")
			_, err := c.Upload(context.Background(), "x.jpg", newImage())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "imagekit:")
		})
	}
}

func TestUpload_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Upload(ctx, "x.jpg", newImage())
	assert.Error(t, err)
}

func TestUpload_EmptyImage(t *testing.T) {
	c, err := New(Config{PrivateKey: "k"})
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), "x.jpg", &model.Image{})
	assert.Error(t, err)
}
