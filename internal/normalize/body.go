package normalize

import "github.com/rivo/uniseg"

// BodyMaxLength is the episode-body limit in grapheme clusters.
const BodyMaxLength = 800

// ClampBody truncates s to BodyMaxLength grapheme clusters. Counting
// graphemes rather than bytes or code points keeps multi-scalar clusters
// (emoji, combining sequences) intact at the boundary.
func ClampBody(s string) string {
	return clampGraphemes(s, BodyMaxLength)
}

func clampGraphemes(s string, max int) string {
	g := uniseg.NewGraphemes(s)
	n := 0
	for g.Next() {
		n++
		if n > max {
			start, _ := g.Positions()
			return s[:start]
		}
	}
	return s
}
