package imagestore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png", ".png"},
		{"IMAGE/PNG", ".png"},
		{"image/webp; charset=binary", ".webp"},
		{"application/x-unknown-thing", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.mime))
		})
	}
}

func TestNewName(t *testing.T) {
	a := NewName("image/jpeg")
	b := NewName("image/jpeg")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.Len(t, strings.TrimSuffix(a, ".jpg"), 36)
}
