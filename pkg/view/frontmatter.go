package view

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// page is a markdown page split into YAML frontmatter and body.
type page struct {
	Metadata map[string]any
	Body     string
}

// parsePage extracts "---" delimited YAML frontmatter from content.
// Content without frontmatter yields empty metadata and the full body.
func parsePage(content []byte) (*page, error) {
	delimiter := []byte("---")

	if !bytes.HasPrefix(content, delimiter) {
		return &page{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	afterFirst := bytes.TrimLeft(bytes.TrimPrefix(content, delimiter), "\n\r")
	if len(afterFirst) == 0 {
		return nil, fmt.Errorf("%w: no content after opening delimiter", ErrInvalidFrontmatter)
	}

	endIdx := bytes.Index(afterFirst, delimiter)
	if endIdx == -1 {
		return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	front := afterFirst[:endIdx]
	body := bytes.TrimPrefix(afterFirst[endIdx+len(delimiter):], []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))

	metadata := map[string]any{}
	if len(bytes.TrimSpace(front)) > 0 {
		if err := yaml.Unmarshal(front, &metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	return &page{Metadata: metadata, Body: string(body)}, nil
}
