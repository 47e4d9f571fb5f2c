// Package caption defines the caption generator the post service depends on.
package caption

import (
	"context"

	"github.com/sakif/captionly/internal/model"
)

const (
	DefaultPrompt = "Caption this image."

	DefaultInstruction = "You are an expert in generating captions for images. " +
		"You generate a single caption for the image. " +
		"Your caption should be short and concise. " +
		"You use hashtags and emojis in the caption."
)

// Generator produces a caption for an image.
// Implementations must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, img *model.Image) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, img *model.Image) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, img *model.Image) (string, error) {
	return f(ctx, img)
}
