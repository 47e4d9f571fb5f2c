// Package gemini generates captions with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sakif/captionly/internal/caption"
	"github.com/sakif/captionly/internal/model"
)

var _ caption.Generator = (*Client)(nil)

const DefaultModel = "gemini-2.5-flash"

// Config holds the model settings. Empty fields fall back to the defaults.
type Config struct {
	APIKey      string
	Model       string
	Instruction string
	Prompt      string
}

// Client wraps a genai client bound to one model.
type Client struct {
	models      contentGenerator
	model       string
	instruction string
	prompt      string
}

// contentGenerator is the slice of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// New creates a Client for the Gemini API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return newClient(gc.Models, cfg), nil
}

func newClient(models contentGenerator, cfg Config) *Client {
	c := &Client{
		models:      models,
		model:       cfg.Model,
		instruction: cfg.Instruction,
		prompt:      cfg.Prompt,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.instruction == "" {
		c.instruction = caption.DefaultInstruction
	}
	if c.prompt == "" {
		c.prompt = caption.DefaultPrompt
	}
	return c
}

// Generate sends the image inline with the prompt and returns the model's text.
func (c *Client) Generate(ctx context.Context, img *model.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", errors.New("gemini: empty image")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MIMEType),
			genai.NewPartFromText(c.prompt),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.instruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generating caption with %s: %w", c.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: model returned no caption")
	}
	return text, nil
}
