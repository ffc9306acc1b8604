package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"banana-slides/internal/ai"
	"banana-slides/internal/assets"
	"banana-slides/internal/config"
	"banana-slides/internal/generator"
	"banana-slides/internal/orchestrator"
	"banana-slides/internal/review"
	"banana-slides/internal/state"
)

// openStore opens the project database and brings the schema current.
func openStore() (*state.DB, error) {
	db, err := state.Open(state.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// openAssets opens the image blob directory.
func openAssets() (*assets.Dir, error) {
	return assets.NewDir(assets.DefaultRoot())
}

// dataDir returns the application data directory shared by the
// database, assets, and run logs.
func dataDir() string {
	return filepath.Dir(state.DefaultDBPath())
}

// buildOrchestrator wires AI clients, generators, and the review gate
// from configuration.
func buildOrchestrator(ctx context.Context, cfg *config.Config, db *state.DB, dir *assets.Dir, logger *orchestrator.DebugLogger, events chan orchestrator.Event) (*orchestrator.Orchestrator, error) {
	text, err := buildTextClient(cfg)
	if err != nil {
		return nil, err
	}

	var image orchestrator.ImageGenerator
	if cfg.Images.Enabled {
		geminiKey, err := config.GetGeminiKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("images are enabled: %w", err)
		}
		gemini, err := ai.NewGeminiImageClient(ctx, ai.GeminiConfig{
			APIKey: geminiKey,
			Model:  cfg.Gemini.Model,
		})
		if err != nil {
			return nil, err
		}
		image = generator.NewImageGenerator(gemini, dir, cfg.Images.AspectRatio)
	}

	retry := orchestrator.DefaultRetryPolicy()
	retry.BaseDelay = cfg.Retry.BaseDelay
	retry.MaxDelay = cfg.Retry.MaxDelay
	retry.MaxOutline = cfg.Retry.MaxAttempts
	retry.MaxContent = cfg.Retry.MaxAttempts
	retry.MaxImage = cfg.Retry.MaxAttempts
	retry.MaxReview = cfg.Retry.MaxAttempts

	return orchestrator.New(orchestrator.Required{
		Store:    db,
		Outline:  generator.NewOutlineGenerator(text),
		Content:  generator.NewContentGenerator(text, nil),
		Image:    image,
		Reviewer: review.NewGate(text),
	},
		orchestrator.WithContentWorkers(cfg.Workers.Content),
		orchestrator.WithImageWorkers(cfg.Workers.Image),
		orchestrator.WithRetryPolicy(retry),
		orchestrator.WithRevisionCeiling(cfg.Review.RevisionCeiling),
		orchestrator.WithFailureTolerance(cfg.Export.FailureTolerance),
		orchestrator.WithImages(cfg.Images.Enabled),
		orchestrator.WithLogger(logger),
		orchestrator.WithEvents(events),
	)
}

// buildTextClient creates the Anthropic client from configuration.
func buildTextClient(cfg *config.Config) (*ai.AnthropicClient, error) {
	apiKey := ""
	if !cfg.Anthropic.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}
	return ai.NewAnthropicClient(ai.AnthropicConfig{
		Model:         cfg.Anthropic.Model,
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
}

// printProgress consumes orchestrator events and renders CLI progress
// until the channel closes.
func printProgress(events <-chan orchestrator.Event) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	for ev := range events {
		switch ev.Type {
		case orchestrator.EventOutlineCompleted:
			green.Printf("✓ %s\n", ev.Message)
		case orchestrator.EventTaskRetried:
			yellow.Printf("⟳ %s retrying (attempt %d): %v\n", ev.TaskID, ev.Attempt, ev.Err)
		case orchestrator.EventSlideAccepted:
			green.Printf("✓ slide %d accepted\n", ev.SlideIndex+1)
		case orchestrator.EventSlideRevised:
			yellow.Printf("⟳ slide %d sent back for revision: %s\n", ev.SlideIndex+1, ev.Message)
		case orchestrator.EventSlideFailed:
			red.Printf("✗ slide %d failed: %v\n", ev.SlideIndex+1, ev.Err)
		case orchestrator.EventRunDone:
			fmt.Println(ev.Message)
		}
	}
}
