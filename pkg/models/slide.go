package models

// SlideStatus represents the generation state of a single slide.
type SlideStatus string

const (
	// SlidePending indicates no generation has completed for this slide.
	SlidePending SlideStatus = "pending"
	// SlideContentReady indicates the text body has been generated.
	SlideContentReady SlideStatus = "content_ready"
	// SlideImageReady indicates the illustrative image has been generated.
	SlideImageReady SlideStatus = "image_ready"
	// SlideUnderReview indicates the review gate is evaluating the slide.
	SlideUnderReview SlideStatus = "under_review"
	// SlideAccepted indicates the review gate accepted the slide.
	SlideAccepted SlideStatus = "accepted"
	// SlideFailed indicates the slide permanently failed.
	SlideFailed SlideStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SlideStatus) Valid() bool {
	switch s {
	case SlidePending, SlideContentReady, SlideImageReady, SlideUnderReview, SlideAccepted, SlideFailed:
		return true
	default:
		return false
	}
}

// Done returns true if the slide needs no further generation work.
func (s SlideStatus) Done() bool {
	return s == SlideAccepted || s == SlideFailed
}

// SlideSpec is one row of the outline: what a slide should be about.
// Specs are immutable once the outline is generated.
type SlideSpec struct {
	// Index is the zero-based render position of the slide.
	Index int `json:"index"`
	// Title is the slide heading.
	Title string `json:"title"`
	// Intent summarizes what the slide must convey.
	Intent string `json:"intent"`
}

// Slide is the per-page generation record. Index is unique within a
// project and defines export order regardless of completion order.
type Slide struct {
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Index is the zero-based render position.
	Index int `json:"index"`
	// Title is the slide heading from the outline.
	Title string `json:"title"`
	// Intent is the outline intent summary for this slide.
	Intent string `json:"intent"`
	// Content is the generated markdown body, empty until content_ready.
	Content string `json:"content,omitempty"`
	// ImagePath is the blob reference to the generated image, relative
	// to the data directory. Empty until image_ready.
	ImagePath string `json:"image_path,omitempty"`
	// ReviewCount is how many revise cycles this slide has been through.
	ReviewCount int `json:"review_count"`
	// Feedback is the latest reviewer feedback, carried into regeneration.
	Feedback string `json:"feedback,omitempty"`
	// Status is the current generation state.
	Status SlideStatus `json:"status"`
	// LastError records why the slide failed, if it did.
	LastError string `json:"last_error,omitempty"`
}

// Spec returns the outline spec this slide was generated from.
func (s *Slide) Spec() SlideSpec {
	return SlideSpec{Index: s.Index, Title: s.Title, Intent: s.Intent}
}
