package normalize

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Grapheme-length limits for bounded free-name inputs.
const (
	PersonNameMaxLength  = 10
	ProjectNameMaxLength = 20
	PlaceNameMaxLength   = 20
)

// Name normalizes a free-name input (person, project, emotion, place):
// the display form is the trimmed text as-is, the comparison key its
// lowercase. Diacritics and width variants are preserved. ok is false when
// the trimmed input is empty.
func Name(raw string) (display, key string, ok bool) {
	display = strings.TrimSpace(raw)
	if display == "" {
		return "", "", false
	}
	return display, strings.ToLower(display), true
}

// BoundedName trims raw and rejects it when empty or longer than
// maxGraphemes grapheme clusters.
func BoundedName(raw string, maxGraphemes int) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || uniseg.GraphemeClusterCount(s) > maxGraphemes {
		return "", false
	}
	return s, true
}
