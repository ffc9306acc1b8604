package models

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectPlanning indicates the outline has not been generated yet.
	ProjectPlanning ProjectStatus = "planning"
	// ProjectGenerating indicates slide generation is in progress.
	ProjectGenerating ProjectStatus = "generating"
	// ProjectPartiallyFailed indicates generation finished with more
	// failed slides than the configured tolerance, or the outline failed.
	ProjectPartiallyFailed ProjectStatus = "partially_failed"
	// ProjectReady indicates every slide is accepted or failed within
	// tolerance and the project can be exported.
	ProjectReady ProjectStatus = "ready"
	// ProjectExported indicates an artifact has been produced at least once.
	ProjectExported ProjectStatus = "exported"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectGenerating, ProjectPartiallyFailed, ProjectReady, ProjectExported:
		return true
	default:
		return false
	}
}

// Terminal returns true if generation can no longer run for this status.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectReady || s == ProjectExported || s == ProjectPartiallyFailed
}

// Project is the durable record of one presentation-generation request.
// It is owned by the orchestrator while generating and read-mostly once ready.
type Project struct {
	// ID is the opaque project identifier, stable across create/export.
	ID string `json:"id"`
	// Prompt is the natural-language request the project was created from.
	Prompt string `json:"prompt"`
	// Language is the output language ("en", "zh", "ja", or "auto").
	Language string `json:"language"`
	// RequestedPages is the page count hint. Zero means no preference;
	// the outline generator may return a different count either way.
	RequestedPages int `json:"requested_pages,omitempty"`
	// TemplateRef is the path to a style reference image, if any.
	TemplateRef string `json:"template_ref,omitempty"`
	// Status is the current lifecycle state.
	Status ProjectStatus `json:"status"`
	// FailedSlides is the number of permanently failed slides after a run.
	FailedSlides int `json:"failed_slides"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
}

// RunSummary reports the outcome of one orchestrator run.
type RunSummary struct {
	// Accepted is the number of slides that passed review.
	Accepted int `json:"accepted"`
	// Failed is the number of slides that permanently failed.
	Failed int `json:"failed"`
	// Skipped is the number of slides left untouched because the run
	// was cancelled before they were dispatched.
	Skipped int `json:"skipped"`
}

// Total returns the number of slides covered by the summary.
func (s RunSummary) Total() int {
	return s.Accepted + s.Failed + s.Skipped
}
