package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ImageRequest is one image generation call.
type ImageRequest struct {
	// Prompt describes the image to generate.
	Prompt string
	// AspectRatio is the requested ratio, e.g. "16:9".
	AspectRatio string
	// Reference images are attached as inline parts, template first.
	References []ImageBlob
}

// ImageBlob is raw image data with its MIME type.
type ImageBlob struct {
	Data     []byte
	MIMEType string
}

// ImageClient is the image-generation boundary used by the slide image
// generator. Same contract as TextClient: one call, no internal retries.
type ImageClient interface {
	Generate(ctx context.Context, req ImageRequest) (*ImageBlob, error)
}

// GeminiImageClient implements ImageClient on the Gemini API.
type GeminiImageClient struct {
	client *genai.Client
	model  string
}

// GeminiConfig contains configuration for creating a GeminiImageClient.
type GeminiConfig struct {
	// APIKey is the Gemini API key.
	APIKey string
	// Model is the image-capable model name. Empty selects a default.
	Model string
}

// NewGeminiImageClient creates an image client backed by the Gemini API.
func NewGeminiImageClient(ctx context.Context, cfg GeminiConfig) (*GeminiImageClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	return &GeminiImageClient{client: client, model: model}, nil
}

// Generate produces one image for the request. The first inline-data
// part of the response is returned; a response with no image part is a
// GenerationError, not a provider failure.
func (c *GeminiImageClient) Generate(ctx context.Context, req ImageRequest) (*ImageBlob, error) {
	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt = fmt.Sprintf("%s\n\nAspect ratio: %s.", prompt, req.AspectRatio)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, ref := range req.References {
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MIMEType))
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, &ProviderError{Op: "image.generate", Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &GenerationError{Op: "image.generate", Reason: "no candidates"}
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return &ImageBlob{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}, nil
		}
	}

	return nil, &GenerationError{Op: "image.generate", Reason: "response contains no image part"}
}
