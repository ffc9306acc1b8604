package review

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"banana-slides/internal/ai"
	"banana-slides/pkg/models"
)

type stubText struct {
	text string
	err  error
}

func (s *stubText) Complete(_ context.Context, _ ai.TextRequest) (*ai.TextResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.TextResponse{Text: s.text}, nil
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Decision
		feedback string
		wantErr  bool
	}{
		{
			name:     "accept",
			response: "VERDICT: ACCEPT\n",
			want:     DecisionAccept,
		},
		{
			name:     "accept lowercase",
			response: "verdict preamble\nVERDICT: accept\n",
			want:     DecisionAccept,
		},
		{
			name:     "revise with feedback",
			response: "VERDICT: REVISE\nFEEDBACK: Tighten the second bullet.\n",
			want:     DecisionRevise,
			feedback: "Tighten the second bullet.",
		},
		{
			name:     "reject with reason",
			response: "VERDICT: REJECT\nFEEDBACK: Off topic entirely.\n",
			want:     DecisionReject,
			feedback: "Off topic entirely.",
		},
		{
			name:     "revise without feedback",
			response: "VERDICT: REVISE\n",
			wantErr:  true,
		},
		{
			name:     "unknown verdict",
			response: "VERDICT: MAYBE\n",
			wantErr:  true,
		},
		{
			name:     "no verdict line",
			response: "The slide looks fine to me.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if v.Decision != tt.want {
				t.Errorf("decision = %q, want %q", v.Decision, tt.want)
			}
			if v.Feedback != tt.feedback {
				t.Errorf("feedback = %q, want %q", v.Feedback, tt.feedback)
			}
		})
	}
}

func TestGateReview(t *testing.T) {
	gate := NewGate(&stubText{text: "VERDICT: REVISE\nFEEDBACK: Add a concrete example."})

	v, err := gate.Review(context.Background(),
		&models.Project{Prompt: "intro to Go"},
		&models.Slide{Index: 2, Title: "Goroutines", Content: "- cheap threads"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if v.Decision != DecisionRevise {
		t.Errorf("decision = %q", v.Decision)
	}
	if v.Feedback != "Add a concrete example." {
		t.Errorf("feedback = %q", v.Feedback)
	}
}

func TestGateReviewMalformedResponse(t *testing.T) {
	gate := NewGate(&stubText{text: "Sure, here are my thoughts on the slide..."})

	_, err := gate.Review(context.Background(), &models.Project{}, &models.Slide{})

	var ge *ai.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGateReviewProviderError(t *testing.T) {
	gate := NewGate(&stubText{err: &ai.ProviderError{Op: "text.complete", Err: fmt.Errorf("503")}})

	_, err := gate.Review(context.Background(), &models.Project{}, &models.Slide{})
	if !ai.IsRetryable(err) {
		t.Fatalf("expected retryable provider error, got %v", err)
	}
}

func TestIsRejection(t *testing.T) {
	rej := &Rejection{SlideIndex: 4, Reason: "off topic"}
	if !IsRejection(fmt.Errorf("review: %w", rej)) {
		t.Error("wrapped rejection not detected")
	}
	if IsRejection(errors.New("plain")) {
		t.Error("plain error misclassified as rejection")
	}
}
