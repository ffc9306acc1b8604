package orchestrator

import (
	"context"

	"banana-slides/internal/review"
	"banana-slides/internal/state"
	"banana-slides/pkg/models"
)

// OutlineGenerator produces the ordered slide plan for a project.
type OutlineGenerator interface {
	Generate(ctx context.Context, p *models.Project) ([]models.SlideSpec, error)
}

// ContentGenerator produces one slide's body text.
type ContentGenerator interface {
	Generate(ctx context.Context, p *models.Project, spec models.SlideSpec, feedback string) (string, error)
}

// ImageGenerator produces one slide's illustration and returns its blob ref.
type ImageGenerator interface {
	Generate(ctx context.Context, p *models.Project, spec models.SlideSpec, content, feedback string) (string, error)
}

// Required contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type Required struct {
	// Store persists project and slide state.
	Store state.Store
	// Outline generates the slide plan.
	Outline OutlineGenerator
	// Content generates slide bodies.
	Content ContentGenerator
	// Image generates slide illustrations.
	Image ImageGenerator
	// Reviewer judges completed slides.
	Reviewer review.Reviewer
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	contentWorkers  int
	imageWorkers    int
	retry           RetryPolicy
	revisionCeiling int
	tolerance       int
	imagesEnabled   bool
	logger          *DebugLogger
	events          chan Event
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		contentWorkers:  3,
		imageWorkers:    2,
		retry:           DefaultRetryPolicy(),
		revisionCeiling: 2,
		tolerance:       0,
		imagesEnabled:   true,
		logger:          NopLogger(),
	}
}

// WithContentWorkers sets the content pool size.
func WithContentWorkers(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.contentWorkers = n
		}
	}
}

// WithImageWorkers sets the image pool size.
func WithImageWorkers(n int) Option {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.imageWorkers = n
		}
	}
}

// WithRetryPolicy sets backoff and attempt ceilings.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *orchestratorOptions) { o.retry = p }
}

// WithRevisionCeiling sets how many revise verdicts a slide may absorb
// before it is marked failed.
func WithRevisionCeiling(n int) Option {
	return func(o *orchestratorOptions) {
		if n >= 0 {
			o.revisionCeiling = n
		}
	}
}

// WithFailureTolerance sets how many failed slides still leave the
// project in the ready state.
func WithFailureTolerance(n int) Option {
	return func(o *orchestratorOptions) {
		if n >= 0 {
			o.tolerance = n
		}
	}
}

// WithImages enables or disables image generation for the run.
// When disabled, review gates on content alone.
func WithImages(enabled bool) Option {
	return func(o *orchestratorOptions) { o.imagesEnabled = enabled }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEvents sets the channel progress events are emitted on.
// Emission never blocks; an un-drained channel drops events.
func WithEvents(ch chan Event) Option {
	return func(o *orchestratorOptions) { o.events = ch }
}
