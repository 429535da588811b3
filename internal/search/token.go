package search

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/comado-8/EpisodeStocker-sub000/internal/normalize"
)

// Honorific suffixes stripped from person token values, in match order.
var honorifics = []string{"さん", "くん", "ちゃん", "氏"}

// Token is one structured search constraint: a facet plus its normalized
// value. Tokens for the same field OR together; distinct fields AND.
type Token struct {
	Field Field
	Value string
}

// NewToken normalizes raw for the given field and returns the token.
// ok is false when normalization leaves an empty value.
func NewToken(f Field, raw string) (Token, bool) {
	v := normalizeValue(f, raw)
	if v == "" {
		return Token{}, false
	}
	return Token{Field: f, Value: v}, true
}

// Equal defines token identity: same field and case-folded equal values.
// The UI layer relies on this for dedup and removal.
func (t Token) Equal(o Token) bool {
	return t.Field == o.Field && strings.EqualFold(t.Value, o.Value)
}

// Display renders the token as a human-readable "field:value" string.
func (t Token) Display() string { return t.Field.String() + ":" + t.Value }

// ParseDisplay reconstructs a token from a "field:value" display string.
func ParseDisplay(s string) (Token, bool) {
	name, value, found := strings.Cut(s, ":")
	if !found {
		return Token{}, false
	}
	f, ok := ParseField(name)
	if !ok {
		return Token{}, false
	}
	return NewToken(f, value)
}

// ParseDisplayList rebuilds a saved search from display strings, dropping
// malformed entries and duplicates (by token identity).
func ParseDisplayList(list []string) []Token {
	var out []Token
	for _, s := range list {
		tok, ok := ParseDisplay(s)
		if !ok {
			continue
		}
		dup := false
		for _, have := range out {
			if have.Equal(tok) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, tok)
		}
	}
	return out
}

// normalizeValue is the per-field normalization used both at token
// construction and against runtime candidate values, so comparisons stay
// symmetric.
func normalizeValue(f Field, raw string) string {
	switch f {
	case FieldTag:
		v, _ := normalize.Tag(raw)
		return v
	case FieldPerson:
		return stripHonorific(strings.TrimSpace(raw))
	case FieldTalkCount:
		return canonicalTalkCount(raw)
	case FieldLastTalkedAt, FieldRegisteredDate:
		return canonicalDateValue(raw)
	case FieldMediaType:
		return CanonicalMediaType(raw)
	case FieldReaction:
		return CanonicalReaction(raw)
	case FieldProject, FieldEmotion, FieldPlace:
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw)
}

// stripHonorific removes one trailing honorific suffix if present. Case is
// preserved; person matching itself is case-insensitive.
func stripHonorific(s string) string {
	for _, suffix := range honorifics {
		if rest, ok := strings.CutSuffix(s, suffix); ok {
			return rest
		}
	}
	return s
}

// foldWidth folds fullwidth digits and punctuation to their halfwidth
// forms before numeric or date parsing.
func foldWidth(s string) string {
	return width.Narrow.String(s)
}
