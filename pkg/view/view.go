package view

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ContentTypeHTML is the content type of rendered views.
const ContentTypeHTML = "text/html; charset=utf-8"

// Renderer renders a named view with data bindings.
// Implementations must be safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, w io.Writer, name string, data any) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, w io.Writer, name string, data any) error

// Render calls f(ctx, w, name, data).
func (f RendererFunc) Render(ctx context.Context, w io.Writer, name string, data any) error {
	return f(ctx, w, name, data)
}

// Stack tries renderers in order and uses the first one that knows the view.
// A renderer signals an unknown view by returning an error wrapping ErrViewNotFound.
//
// Example:
//
//	r := view.Stack(
//	    view.Components{"home": pages.Home},
//	    view.NewMarkdown(content),
//	    view.NewTemplates(templates),
//	)
func Stack(renderers ...Renderer) Renderer {
	return RendererFunc(func(ctx context.Context, w io.Writer, name string, data any) error {
		for _, r := range renderers {
			err := r.Render(ctx, w, name, data)
			if errors.Is(err, ErrViewNotFound) {
				continue
			}
			return err
		}
		return fmt.Errorf("%w: %s", ErrViewNotFound, name)
	})
}
