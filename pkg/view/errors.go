package view

import "errors"

var (
	// ErrViewNotFound indicates the renderer has no view with the requested name.
	ErrViewNotFound = errors.New("view: not found")

	// ErrRenderFailed indicates template execution or conversion failed.
	ErrRenderFailed = errors.New("view: failed to render")

	// ErrInvalidFrontmatter indicates invalid YAML frontmatter in a markdown page.
	ErrInvalidFrontmatter = errors.New("view: invalid frontmatter")
)
