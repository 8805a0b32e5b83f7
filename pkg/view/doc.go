// Package view provides the view-render collaborator used by responses and routes.
//
// A [Renderer] turns a view name and data bindings into HTML:
//
//   - [Templates] executes html/template files, optionally inside a layout
//   - [Markdown] converts markdown pages (goldmark) and sanitizes them (bluemonday)
//   - [Components] renders templ components
//
// [Stack] combines renderers; the first one that knows a view renders it.
//
//	r := view.Stack(
//	    view.NewMarkdown(pages),
//	    view.NewTemplates(templates, view.WithLayout("layout.html")),
//	)
//
// Unknown views fail with [ErrViewNotFound]; execution failures wrap [ErrRenderFailed].
// Missing data keys render as zero values.
package view
