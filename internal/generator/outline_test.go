package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"banana-slides/internal/ai"
	"banana-slides/pkg/models"
)

// fakeTextClient returns canned responses in order.
type fakeTextClient struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeTextClient) Complete(_ context.Context, req ai.TextRequest) (*ai.TextResponse, error) {
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return nil, f.err
	}
	text := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return &ai.TextResponse{Text: text}, nil
}

func TestGenerateOutline(t *testing.T) {
	client := &fakeTextClient{responses: []string{
		`[{"title": "Why Climate Matters", "intent": "frame the stakes"},
		  {"title": "The Data", "intent": "show warming trends"},
		  {"title": "What We Can Do", "intent": "call to action"}]`,
	}}

	g := NewOutlineGenerator(client)
	specs, err := g.Generate(context.Background(), &models.Project{Prompt: "climate change", Language: "en"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	for i, spec := range specs {
		if spec.Index != i {
			t.Errorf("spec %d has index %d", i, spec.Index)
		}
	}
	if specs[0].Title != "Why Climate Matters" {
		t.Errorf("unexpected first title %q", specs[0].Title)
	}
}

func TestGenerateOutlineFencedJSON(t *testing.T) {
	client := &fakeTextClient{responses: []string{
		"Here is your outline:\n```json\n[{\"title\": \"One\", \"intent\": \"a\"}]\n```\n",
	}}

	g := NewOutlineGenerator(client)
	specs, err := g.Generate(context.Background(), &models.Project{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(specs) != 1 || specs[0].Title != "One" {
		t.Fatalf("unexpected specs %+v", specs)
	}
}

func TestGenerateOutlineRepairedJSON(t *testing.T) {
	// Trailing comma: invalid JSON that jsonrepair can fix.
	client := &fakeTextClient{responses: []string{
		`[{"title": "One", "intent": "a"}, {"title": "Two", "intent": "b"},]`,
	}}

	g := NewOutlineGenerator(client)
	specs, err := g.Generate(context.Background(), &models.Project{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
}

func TestGenerateOutlineEmpty(t *testing.T) {
	client := &fakeTextClient{responses: []string{`[]`}}

	g := NewOutlineGenerator(client)
	_, err := g.Generate(context.Background(), &models.Project{Prompt: "x"})

	var ge *ai.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerateOutlineMalformed(t *testing.T) {
	client := &fakeTextClient{responses: []string{`I cannot help with that.`}}

	g := NewOutlineGenerator(client)
	_, err := g.Generate(context.Background(), &models.Project{Prompt: "x"})

	var ge *ai.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerateOutlinePropagatesProviderError(t *testing.T) {
	client := &fakeTextClient{err: &ai.ProviderError{Op: "text.complete", Err: errors.New("429")}}

	g := NewOutlineGenerator(client)
	_, err := g.Generate(context.Background(), &models.Project{Prompt: "x"})
	if !ai.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestContentGeneratorFeedbackInPrompt(t *testing.T) {
	client := &fakeTextClient{responses: []string{"- point one\n- point two"}}

	g := NewContentGenerator(client, nil)
	spec := models.SlideSpec{Index: 1, Title: "The Data", Intent: "show trends"}
	body, err := g.Generate(context.Background(), &models.Project{Prompt: "climate"}, spec, "cite sources")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if body == "" {
		t.Fatal("expected non-empty body")
	}
	if !strings.Contains(client.prompts[0], "cite sources") {
		t.Error("feedback missing from prompt")
	}
	if !strings.Contains(client.prompts[0], "The Data") {
		t.Error("slide title missing from prompt")
	}
}

func TestContentGeneratorContextProvider(t *testing.T) {
	client := &fakeTextClient{responses: []string{"body"}}
	provider := ContextProviderFunc(func(_ context.Context, _ *models.Project, _ models.SlideSpec) (string, error) {
		return "retrieved reference", nil
	})

	g := NewContentGenerator(client, provider)
	_, err := g.Generate(context.Background(), &models.Project{Prompt: "x"}, models.SlideSpec{}, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(client.prompts[0], "retrieved reference") {
		t.Error("context provider material missing from prompt")
	}
}
