package generator

import (
	"context"

	"banana-slides/pkg/models"
)

// ContextProvider supplies extra reference material to a generator
// before its main call: retrieved documents, prior research, uploaded
// source text. Providers are injected, not looked up ambiently; a nil
// provider simply means no extra context.
type ContextProvider interface {
	// Gather returns reference material for the slide, or "" if none.
	Gather(ctx context.Context, p *models.Project, spec models.SlideSpec) (string, error)
}

// ContextProviderFunc adapts a function to the ContextProvider interface.
type ContextProviderFunc func(ctx context.Context, p *models.Project, spec models.SlideSpec) (string, error)

// Gather implements ContextProvider.
func (f ContextProviderFunc) Gather(ctx context.Context, p *models.Project, spec models.SlideSpec) (string, error) {
	return f(ctx, p, spec)
}
