// Package export renders stored project state into presentation
// artifacts. Rendering never calls a model: everything comes from the
// last committed checkpoint and the image files on disk.
package export

import (
	"fmt"
	"sort"

	"banana-slides/internal/assets"
	"banana-slides/pkg/models"
)

// Format identifies an artifact type.
type Format string

const (
	// FormatPPTX produces an OOXML presentation package.
	FormatPPTX Format = "pptx"
	// FormatPDF produces one PDF page per slide.
	FormatPDF Format = "pdf"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPPTX:
		return FormatPPTX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want pptx or pdf)", s)
	}
}

// Snapshot is the stored state an artifact is rendered from.
type Snapshot struct {
	Project *models.Project
	Slides  []*models.Slide
}

// TooManyFailuresError is returned when a snapshot has more failed
// slides than the renderer tolerates.
type TooManyFailuresError struct {
	Failed    int
	Tolerance int
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("refusing export: %d failed slides exceeds tolerance %d", e.Failed, e.Tolerance)
}

// Renderer turns snapshots into artifact bytes.
type Renderer struct {
	dir       *assets.Dir
	tolerance int
}

// NewRenderer creates a renderer reading image blobs from dir.
// tolerance is the number of failed slides an export will absorb as
// placeholder pages before refusing.
func NewRenderer(dir *assets.Dir, tolerance int) *Renderer {
	return &Renderer{dir: dir, tolerance: tolerance}
}

// Render produces an artifact for the snapshot. Slides are always
// emitted in ascending index order regardless of input order; failed
// slides render as placeholder pages.
func (r *Renderer) Render(snap Snapshot, format Format) ([]byte, error) {
	if len(snap.Slides) == 0 {
		return nil, fmt.Errorf("project %s has no slides to export", snap.Project.ID)
	}

	slides := make([]*models.Slide, len(snap.Slides))
	copy(slides, snap.Slides)
	sort.Slice(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })

	failed := 0
	for _, s := range slides {
		if s.Status == models.SlideFailed {
			failed++
		}
	}
	if failed > r.tolerance {
		return nil, &TooManyFailuresError{Failed: failed, Tolerance: r.tolerance}
	}

	pages := make([]page, len(slides))
	for i, s := range slides {
		pages[i] = r.buildPage(s)
	}

	switch format {
	case FormatPPTX:
		return renderPPTX(pages)
	case FormatPDF:
		return renderPDF(pages)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// page is one slide resolved for rendering: text plus loaded image
// bytes, or a placeholder when generation failed.
type page struct {
	title       string
	body        string
	image       []byte
	placeholder bool
	note        string
}

func (r *Renderer) buildPage(s *models.Slide) page {
	if s.Status == models.SlideFailed {
		return page{
			title:       s.Title,
			placeholder: true,
			note:        "This slide could not be generated.",
		}
	}

	p := page{title: s.Title, body: s.Content}
	if s.ImagePath != "" && r.dir != nil {
		data, err := r.dir.Read(s.ImagePath)
		if err == nil {
			p.image = data
		} else {
			// Missing blob degrades to a text-only page.
			p.note = "Illustration unavailable."
		}
	}
	return p
}
