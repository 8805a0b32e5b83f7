package internal

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalHeaderName returns the Title-Case-With-Dashes form of a header name.
// Underscores are treated as dashes so CGI-style names fold into the same key.
// "etag" is special-cased to "ETag".
func CanonicalHeaderName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", "-"))
	if strings.EqualFold(name, "etag") {
		return "ETag"
	}

	// cases.Caser is stateful, so a fresh one is used per call.
	caser := cases.Title(language.Und)
	parts := strings.Split(name, "-")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "-")
}

// canonicalHeaders copies a header map, canonicalizing every name.
// Names that fold to the same key are applied in sorted source-key order,
// so the byte-wise greatest spelling wins.
func canonicalHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for _, k := range slices.Sorted(maps.Keys(src)) {
		dst[CanonicalHeaderName(k)] = src[k]
	}
	return dst
}

// headerField is a single header line. Response keeps an ordered slice of them
// so repeated names survive until the response is sent.
type headerField struct {
	name  string
	value string
}
