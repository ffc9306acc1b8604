// Package review evaluates generated slides against the deck's intent.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"banana-slides/internal/ai"
	"banana-slides/pkg/models"
)

// Decision is the outcome a reviewer can reach for a slide.
type Decision string

const (
	// DecisionAccept marks the slide as good enough to ship.
	DecisionAccept Decision = "accept"
	// DecisionRevise asks for another generation pass with feedback.
	DecisionRevise Decision = "revise"
	// DecisionReject marks the slide as unsalvageable.
	DecisionReject Decision = "reject"
)

// Verdict is a reviewer's structured judgement of one slide.
type Verdict struct {
	Decision Decision
	// Feedback carries actionable guidance when the decision is revise,
	// or the rejection reason when the decision is reject.
	Feedback string
}

// Rejection is returned when a reviewer rejects a slide outright.
// A rejection is terminal for the slide and is never retried.
type Rejection struct {
	SlideIndex int
	Reason     string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("slide %d rejected: %s", r.SlideIndex, r.Reason)
}

// IsRejection reports whether err is a reviewer rejection.
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}

// Reviewer evaluates a completed slide and returns a verdict.
type Reviewer interface {
	Review(ctx context.Context, project *models.Project, slide *models.Slide) (*Verdict, error)
}

// Gate reviews slides with a text model.
type Gate struct {
	client ai.TextClient
}

// NewGate creates a model-backed review gate.
func NewGate(client ai.TextClient) *Gate {
	return &Gate{client: client}
}

const reviewSystemPrompt = `You are a meticulous presentation reviewer. You judge a single slide
against the deck's overall prompt and the slide's stated intent. You respond
only in the exact format requested.`

// Review asks the model to judge one slide and parses its verdict.
func (g *Gate) Review(ctx context.Context, project *models.Project, slide *models.Slide) (*Verdict, error) {
	prompt := buildReviewPrompt(project, slide)

	resp, err := g.client.Complete(ctx, ai.TextRequest{
		System: reviewSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(resp.Text)
	if err != nil {
		return nil, &ai.GenerationError{Op: "review", Reason: err.Error()}
	}
	return verdict, nil
}

// buildReviewPrompt constructs the prompt for slide review.
func buildReviewPrompt(project *models.Project, slide *models.Slide) string {
	var sb strings.Builder

	sb.WriteString("# Slide Review\n\n")
	sb.WriteString("You are reviewing one slide from a generated presentation.\n\n")

	sb.WriteString("## Deck Context\n\n")
	sb.WriteString(fmt.Sprintf("**Presentation prompt**: %s\n\n", project.Prompt))

	sb.WriteString("## Slide Under Review\n\n")
	sb.WriteString(fmt.Sprintf("**Position**: slide %d\n", slide.Index+1))
	sb.WriteString(fmt.Sprintf("**Title**: %s\n", slide.Title))
	if slide.Intent != "" {
		sb.WriteString(fmt.Sprintf("**Intent**: %s\n", slide.Intent))
	}
	sb.WriteString("\n**Body**:\n```\n")
	sb.WriteString(slide.Content)
	sb.WriteString("\n```\n\n")
	if slide.ImagePath != "" {
		sb.WriteString("An illustration was generated for this slide.\n\n")
	}
	if slide.ReviewCount > 0 {
		sb.WriteString(fmt.Sprintf("This is revision attempt %d. Earlier feedback:\n%s\n\n",
			slide.ReviewCount, slide.Feedback))
	}

	sb.WriteString("## Review Guidelines\n\n")
	sb.WriteString("Check that the slide:\n")
	sb.WriteString("- Serves its stated intent within the deck\n")
	sb.WriteString("- Stays on topic for the presentation prompt\n")
	sb.WriteString("- Reads as concise slide copy, not an essay\n")
	sb.WriteString("- Contains no fabricated or obviously wrong claims\n\n")

	sb.WriteString("## Response Format\n\n")
	sb.WriteString("VERDICT: [ACCEPT/REVISE/REJECT]\n")
	sb.WriteString("FEEDBACK: [one or two sentences; required for REVISE and REJECT, omit for ACCEPT]\n\n")
	sb.WriteString("ACCEPT if the slide is ready as-is. REVISE if a targeted rewrite would fix it. ")
	sb.WriteString("REJECT only if the slide cannot serve its intent at all.\n")

	return sb.String()
}

// parseVerdict parses the model's response into a structured verdict.
func parseVerdict(response string) (*Verdict, error) {
	verdict := &Verdict{}
	found := false

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "VERDICT:") {
			raw := strings.TrimSpace(strings.TrimPrefix(line, "VERDICT:"))
			switch strings.ToUpper(raw) {
			case "ACCEPT":
				verdict.Decision = DecisionAccept
			case "REVISE":
				verdict.Decision = DecisionRevise
			case "REJECT":
				verdict.Decision = DecisionReject
			default:
				return nil, fmt.Errorf("unknown verdict %q", raw)
			}
			found = true
		} else if strings.HasPrefix(line, "FEEDBACK:") {
			verdict.Feedback = strings.TrimSpace(strings.TrimPrefix(line, "FEEDBACK:"))
		}
	}

	if !found {
		return nil, fmt.Errorf("no VERDICT line in response")
	}
	if verdict.Decision != DecisionAccept && verdict.Feedback == "" {
		// A revise without feedback gives the generator nothing to act on.
		return nil, fmt.Errorf("%s verdict without feedback", verdict.Decision)
	}
	return verdict, nil
}
