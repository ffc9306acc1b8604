package generator

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"banana-slides/internal/ai"
	"banana-slides/internal/assets"
	"banana-slides/pkg/models"
)

// ImageGenerator produces one slide's illustrative image and stores it
// in the asset directory. Runs in its own pool: image calls are far
// slower and more expensive than text calls.
type ImageGenerator struct {
	client      ai.ImageClient
	dir         *assets.Dir
	aspectRatio string
}

// NewImageGenerator creates an image generator.
func NewImageGenerator(client ai.ImageClient, dir *assets.Dir, aspectRatio string) *ImageGenerator {
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	return &ImageGenerator{client: client, dir: dir, aspectRatio: aspectRatio}
}

// Generate produces the slide image and returns its blob reference.
// The project's template image, when set, is attached as a style
// reference. feedback carries reviewer notes during the revision loop.
func (g *ImageGenerator) Generate(ctx context.Context, p *models.Project, spec models.SlideSpec, content, feedback string) (string, error) {
	var refs []ai.ImageBlob
	if p.TemplateRef != "" {
		data, err := g.dir.Read(p.TemplateRef)
		if err != nil {
			// A missing template degrades the style, not the slide.
			log.Printf("[generator] template image unreadable for project %s: %v", p.ID, err)
		} else {
			refs = append(refs, ai.ImageBlob{Data: data, MIMEType: mimeForExt(p.TemplateRef)})
		}
	}

	blob, err := g.client.Generate(ctx, ai.ImageRequest{
		Prompt:      buildImagePrompt(p, spec, content, feedback, len(refs) > 0),
		AspectRatio: g.aspectRatio,
		References:  refs,
	})
	if err != nil {
		return "", err
	}

	ref, err := g.dir.SaveSlideImage(p.ID, spec.Index, blob.Data, blob.MIMEType)
	if err != nil {
		return "", fmt.Errorf("store slide %d image: %w", spec.Index, err)
	}
	return ref, nil
}

func mimeForExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
