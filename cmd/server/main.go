// Package main is the entry point for the captionly API server.
//
// main stays small: it loads the configuration, builds the logger and the two
// external collaborators (caption model and image host), then hands them to
// internal/server. Everything else lives in internal packages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/captionly/internal/caption"
	"github.com/sakif/captionly/internal/caption/gemini"
	"github.com/sakif/captionly/internal/config"
	"github.com/sakif/captionly/internal/imagestore"
	"github.com/sakif/captionly/internal/imagestore/imagekit"
	"github.com/sakif/captionly/internal/imagestore/local"
	"github.com/sakif/captionly/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === LOGGING ===
	// Text output to stdout. The default logger is replaced too, so packages
	// that log through slog.Default (handler.writeError) use the same sink.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	captioner, err := newCaptioner(cfg)
	if err != nil {
		logger.Error("failed to create caption client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	images, err := newImageStore(cfg)
	if err != nil {
		logger.Error("failed to create image store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger, captioner, images)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newCaptioner(cfg config.Config) (caption.Generator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return gemini.New(ctx, gemini.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Instruction: cfg.CaptionInstruction,
		Prompt:      cfg.CaptionPrompt,
	})
}

func newImageStore(cfg config.Config) (imagestore.Store, error) {
	switch cfg.ImageStore {
	case config.ImageStoreLocal:
		return local.New(cfg.UploadDir, cfg.PublicBaseURL)
	default:
		return imagekit.New(imagekit.Config{
			PrivateKey:   cfg.ImageKitPrivateKey,
			PublicKey:    cfg.ImageKitPublicKey,
			URLEndpoint:  cfg.ImageKitURLEndpoint,
			UploadPrefix: cfg.ImageKitUploadPrefix,
			Folder:       cfg.ImageKitFolder,
		})
	}
}
