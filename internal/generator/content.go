package generator

import (
	"context"
	"log"

	"banana-slides/internal/ai"
	"banana-slides/pkg/models"
)

const contentSystemPrompt = "You are a presentation writer. You write tight, factual slide copy."

// ContentGenerator produces one slide's text body. Instances are safe
// for concurrent use; the orchestrator runs them in a bounded pool.
type ContentGenerator struct {
	client   ai.TextClient
	provider ContextProvider
}

// NewContentGenerator creates a content generator. provider may be nil.
func NewContentGenerator(client ai.TextClient, provider ContextProvider) *ContentGenerator {
	return &ContentGenerator{client: client, provider: provider}
}

// Generate produces the slide body. feedback carries reviewer notes on
// a previous draft during the revision loop, empty on first generation.
// Re-running with the same inputs is safe; the call has no side effects.
func (g *ContentGenerator) Generate(ctx context.Context, p *models.Project, spec models.SlideSpec, feedback string) (string, error) {
	var reference string
	if g.provider != nil {
		ref, err := g.provider.Gather(ctx, p, spec)
		if err != nil {
			// Reference material is best-effort; the main call proceeds without it.
			log.Printf("[generator] context provider failed for slide %d: %v", spec.Index, err)
		} else {
			reference = ref
		}
	}

	resp, err := g.client.Complete(ctx, ai.TextRequest{
		System: contentSystemPrompt,
		Prompt: buildContentPrompt(p, spec, reference, feedback),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
