package view

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Components renders templ components by name.
// Each entry builds the component from the view data.
//
// Example:
//
//	r := view.Components{
//	    "home": func(data any) templ.Component { return pages.Home(data.(pages.HomeData)) },
//	}
type Components map[string]func(data any) templ.Component

// Render builds and renders the named component.
func (c Components) Render(ctx context.Context, w io.Writer, name string, data any) error {
	build, ok := c[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, name)
	}
	if err := build(data).Render(ctx, w); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	return nil
}

var _ Renderer = Components(nil)
