// Package generator produces outlines, slide content, and slide images
// through the AI provider boundary. Generators hold no retry logic;
// the orchestrator owns retries and backoff.
package generator

import (
	"context"
	"strings"

	"banana-slides/internal/ai"
	"banana-slides/pkg/models"
)

const outlineSystemPrompt = "You are a presentation planner. You respond with strict JSON matching the requested schema."

// OutlineGenerator turns the project prompt into an ordered list of
// slide specifications. Runs once per project, outside any pool.
type OutlineGenerator struct {
	client ai.TextClient
}

// NewOutlineGenerator creates an outline generator.
func NewOutlineGenerator(client ai.TextClient) *OutlineGenerator {
	return &OutlineGenerator{client: client}
}

// Generate produces the outline. The project's page count is a hint;
// whatever count the model returns becomes the slide population.
func (g *OutlineGenerator) Generate(ctx context.Context, p *models.Project) ([]models.SlideSpec, error) {
	resp, err := g.client.Complete(ctx, ai.TextRequest{
		System: outlineSystemPrompt,
		Prompt: buildOutlinePrompt(p),
	})
	if err != nil {
		return nil, err
	}

	return parseOutline(resp.Text)
}

// parseOutline decodes the model's JSON array into slide specs.
func parseOutline(text string) ([]models.SlideSpec, error) {
	var rows []struct {
		Title  string `json:"title"`
		Intent string `json:"intent"`
	}
	if err := unmarshalModelJSON(text, &rows); err != nil {
		return nil, &ai.GenerationError{Op: "outline", Reason: "malformed outline JSON: " + err.Error()}
	}
	if len(rows) == 0 {
		return nil, &ai.GenerationError{Op: "outline", Reason: "empty outline"}
	}

	specs := make([]models.SlideSpec, 0, len(rows))
	for i, row := range rows {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			return nil, &ai.GenerationError{Op: "outline", Reason: "outline entry without title"}
		}
		specs = append(specs, models.SlideSpec{
			Index:  i,
			Title:  title,
			Intent: strings.TrimSpace(row.Intent),
		})
	}
	return specs, nil
}
