package search

import (
	"sort"
	"strings"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

// DefaultMaxPerField caps suggestions per facet when the caller passes no
// explicit limit.
const DefaultMaxPerField = 3

// Item is one ranked autocomplete candidate.
type Item struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// candidate accumulates one distinct value of a facet. Display keeps the
// first-seen casing; case variants merge into a single count.
type candidate struct {
	display string
	count   int
	preset  int // index into the facet's preset order, or len(presets)
}

// Suggestions produces ranked, deduplicated autocomplete candidates from
// the episode corpus. With an active field only that facet is ranked;
// otherwise non-empty free text ranks every facet in enumeration order,
// and empty input yields nothing.
func Suggestions(q Query, eps []*model.Episode, maxPerField int) []Item {
	if maxPerField <= 0 {
		maxPerField = DefaultMaxPerField
	}
	var fields []Field
	switch {
	case q.ActiveField != nil:
		fields = []Field{*q.ActiveField}
	case strings.TrimSpace(q.FreeText) != "":
		fields = Fields
	default:
		return nil
	}

	seen := make(map[string]struct{})
	var out []Item
	for _, f := range fields {
		for _, v := range rankField(f, q.FreeText, eps, maxPerField) {
			key := f.String() + "\x00" + strings.ToLower(v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Item{Field: f, Value: v})
		}
	}
	return out
}

func rankField(f Field, freeText string, eps []*model.Episode, max int) []string {
	cands := collect(f, eps)

	query := strings.ToLower(normalizeValue(f, freeText))
	if query != "" {
		filtered := cands[:0]
		for _, c := range cands {
			if strings.Contains(strings.ToLower(c.display), query) {
				filtered = append(filtered, c)
			}
		}
		cands = filtered
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.preset != b.preset {
			return a.preset < b.preset
		}
		if query != "" {
			ap := strings.HasPrefix(strings.ToLower(a.display), query)
			bp := strings.HasPrefix(strings.ToLower(b.display), query)
			if ap != bp {
				return ap
			}
		}
		if a.count != b.count {
			return a.count > b.count
		}
		return a.display < b.display
	})

	if len(cands) > max {
		cands = cands[:max]
	}
	values := make([]string, len(cands))
	for i, c := range cands {
		values[i] = c.display
	}
	return values
}

// collect builds the per-facet candidate list: corpus occurrences for
// entity and log facets, fixed buckets for derived numeric/date facets.
func collect(f Field, eps []*model.Episode) []candidate {
	presets, hasPresets := presetOrder(f)
	presetIdx := func(v string) int {
		if hasPresets {
			for i, p := range presets {
				if strings.EqualFold(p, v) {
					return i
				}
			}
		}
		return len(presets)
	}

	switch f {
	case FieldTalkCount, FieldLastTalkedAt, FieldRegisteredDate:
		out := make([]candidate, 0, len(presets))
		for i, p := range presets {
			out = append(out, candidate{display: p, preset: i})
		}
		return out
	}

	var out []candidate
	index := make(map[string]int)
	add := func(raw string) {
		v := normalizeValue(f, raw)
		if v == "" {
			return
		}
		key := strings.ToLower(v)
		if i, ok := index[key]; ok {
			out[i].count++
			return
		}
		index[key] = len(out)
		out = append(out, candidate{display: v, count: 1, preset: presetIdx(v)})
	}

	for _, ep := range eps {
		if !ep.Active() {
			continue
		}
		switch f {
		case FieldTag, FieldPerson, FieldProject, FieldEmotion, FieldPlace:
			kind, _ := f.EntityKind()
			for _, ent := range ep.Entities(kind) {
				if ent.Active() {
					add(ent.DisplayName)
				}
			}
		case FieldMediaType:
			for i := range ep.UnlockLogs {
				if l := &ep.UnlockLogs[i]; l.Active() && l.MediaType != "" {
					add(l.MediaType)
				}
			}
		case FieldReaction:
			for i := range ep.UnlockLogs {
				if l := &ep.UnlockLogs[i]; l.Active() && l.Reaction != "" {
					add(l.Reaction)
				}
			}
		}
	}
	return out
}
