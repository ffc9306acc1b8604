package orchestrator

import (
	"context"
	"fmt"
	"time"

	"banana-slides/internal/review"
	"banana-slides/internal/state"
	"banana-slides/pkg/models"
)

// Orchestrator drives a project from prompt to a fully reviewed deck.
// It builds a dependency graph over per-slide generation tasks, feeds
// two bounded worker pools, retries transient failures with backoff,
// and checkpoints every state change through the store.
type Orchestrator struct {
	store    state.Store
	outline  OutlineGenerator
	content  ContentGenerator
	image    ImageGenerator
	reviewer review.Reviewer

	contentWorkers  int
	imageWorkers    int
	retry           RetryPolicy
	revisionCeiling int
	tolerance       int
	imagesEnabled   bool
	logger          *DebugLogger
	events          chan Event
}

// New creates an Orchestrator from required dependencies and options.
func New(req Required, opts ...Option) (*Orchestrator, error) {
	if req.Store == nil {
		return nil, fmt.Errorf("orchestrator requires a store")
	}
	if req.Outline == nil || req.Content == nil {
		return nil, fmt.Errorf("orchestrator requires outline and content generators")
	}
	if req.Reviewer == nil {
		return nil, fmt.Errorf("orchestrator requires a reviewer")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.imagesEnabled && req.Image == nil {
		return nil, fmt.Errorf("orchestrator requires an image generator when images are enabled")
	}

	o := &Orchestrator{
		store:           req.Store,
		outline:         req.Outline,
		content:         req.Content,
		image:           req.Image,
		reviewer:        req.Reviewer,
		contentWorkers:  options.contentWorkers,
		imageWorkers:    options.imageWorkers,
		retry:           options.retry,
		revisionCeiling: options.revisionCeiling,
		tolerance:       options.tolerance,
		imagesEnabled:   options.imagesEnabled,
		logger:          options.logger,
		events:          options.events,
	}
	setPackageLogger(o.logger)
	return o, nil
}

// Run generates the project end to end: outline first if no slides
// exist yet, then per-slide content, images, and review. Every slide
// status change is committed before the next task is dispatched, so an
// interrupted run resumes from its last checkpoint.
func (o *Orchestrator) Run(ctx context.Context, project *models.Project) (*models.RunSummary, error) {
	slides, err := o.store.GetSlides(project.ID)
	if err != nil {
		return nil, fmt.Errorf("load slides: %w", err)
	}

	if len(slides) == 0 {
		slides, err = o.runOutline(ctx, project)
		if err != nil {
			return nil, err
		}
	}

	r := newRun(o, project, slides)
	return r.loop(ctx)
}

// Resume loads a project by ID and continues generation from its last
// checkpoint. Projects that are already ready or exported are refused.
func (o *Orchestrator) Resume(ctx context.Context, projectID string) (*models.RunSummary, error) {
	project, err := o.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectReady || project.Status == models.ProjectExported {
		return nil, fmt.Errorf("project %s is %s, nothing to resume", projectID, project.Status)
	}
	return o.Run(ctx, project)
}

// runOutline generates the slide plan and materializes it into slide
// rows. Outline failure is terminal for the run: without a plan there
// is nothing to schedule.
func (o *Orchestrator) runOutline(ctx context.Context, project *models.Project) ([]*models.Slide, error) {
	o.emit(Event{Type: EventOutlineStarted, SlideIndex: -1, Message: "generating outline"})

	var specs []models.SlideSpec
	var err error
	for attempt := 1; attempt <= o.retry.MaxOutline; attempt++ {
		specs, err = o.outline.Generate(ctx, project)
		if err == nil {
			break
		}
		o.logger.Log("[outline] attempt %d failed: %v", attempt, err)
		if !o.retry.shouldRetry(&models.Task{Kind: models.TaskOutline, Attempt: attempt}, err) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.retry.delay(attempt)):
		}
	}
	if err != nil {
		project.Status = models.ProjectPartiallyFailed
		if uerr := o.store.UpdateProject(project); uerr != nil {
			o.logger.Log("[outline] record failure: %v", uerr)
		}
		return nil, fmt.Errorf("generate outline: %w", err)
	}

	slides := make([]*models.Slide, len(specs))
	for i, spec := range specs {
		slides[i] = &models.Slide{
			ProjectID: project.ID,
			Index:     spec.Index,
			Title:     spec.Title,
			Intent:    spec.Intent,
			Status:    models.SlidePending,
		}
	}
	if err := o.store.CreateSlides(project.ID, slides); err != nil {
		return nil, fmt.Errorf("persist outline: %w", err)
	}

	project.Status = models.ProjectGenerating
	if err := o.store.SaveCheckpoint(project, slides); err != nil {
		return nil, fmt.Errorf("checkpoint outline: %w", err)
	}

	o.emit(Event{
		Type:       EventOutlineCompleted,
		SlideIndex: -1,
		Message:    fmt.Sprintf("outline ready: %d slides", len(slides)),
	})
	o.logger.Log("[outline] materialized %d slides for project %s", len(slides), project.ID)
	return slides, nil
}
