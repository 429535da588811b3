// Package search implements the faceted query engine: the token model,
// the episode matcher and the autocomplete ranker. Everything here is a
// pure function over model types; the backing store is never touched.
package search

import (
	"encoding/json"
	"fmt"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

// Field is one of the fixed searchable facets. The set is closed: every
// switch over Field in this package is exhaustive so that adding a facet
// forces the matcher, ranker and token rules to be revisited.
type Field int

const (
	FieldTag Field = iota
	FieldPerson
	FieldProject
	FieldEmotion
	FieldPlace
	FieldTalkCount
	FieldLastTalkedAt
	FieldRegisteredDate
	FieldMediaType
	FieldReaction
)

// Fields lists all facets in enumeration order. Ranker output and
// cross-field suggestion concatenation follow this order.
var Fields = []Field{
	FieldTag,
	FieldPerson,
	FieldProject,
	FieldEmotion,
	FieldPlace,
	FieldTalkCount,
	FieldLastTalkedAt,
	FieldRegisteredDate,
	FieldMediaType,
	FieldReaction,
}

var fieldNames = map[Field]string{
	FieldTag:            "tag",
	FieldPerson:         "person",
	FieldProject:        "project",
	FieldEmotion:        "emotion",
	FieldPlace:          "place",
	FieldTalkCount:      "talkCount",
	FieldLastTalkedAt:   "lastTalkedAt",
	FieldRegisteredDate: "registeredDate",
	FieldMediaType:      "mediaType",
	FieldReaction:       "reaction",
}

func (f Field) String() string { return fieldNames[f] }

// MarshalJSON renders the facet by name.
func (f Field) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

// UnmarshalJSON parses a facet name.
func (f *Field) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, ok := ParseField(s)
	if !ok {
		return fmt.Errorf("unknown field %q", s)
	}
	*f = parsed
	return nil
}

// ParseField maps a field name back to its Field. ok is false for names
// outside the closed set.
func ParseField(s string) (Field, bool) {
	for f, name := range fieldNames {
		if name == s {
			return f, true
		}
	}
	return 0, false
}

// EntityKind returns the reference-entity pool a facet reads, and ok=false
// for derived facets (talk counts, dates, media, reaction).
func (f Field) EntityKind() (model.EntityKind, bool) {
	switch f {
	case FieldTag:
		return model.KindTag, true
	case FieldPerson:
		return model.KindPerson, true
	case FieldProject:
		return model.KindProject, true
	case FieldEmotion:
		return model.KindEmotion, true
	case FieldPlace:
		return model.KindPlace, true
	case FieldTalkCount, FieldLastTalkedAt, FieldRegisteredDate, FieldMediaType, FieldReaction:
		return "", false
	}
	return "", false
}
