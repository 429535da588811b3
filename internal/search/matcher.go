package search

import (
	"strings"
	"time"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

// Query is one parsed search request: free text plus structured tokens.
// ActiveField, when set, scopes suggestion ranking to a single facet; the
// matcher ignores it.
type Query struct {
	FreeText    string
	Tokens      []Token
	ActiveField *Field
}

// ParseQuery builds a Query from free text and saved display tokens.
func ParseQuery(freeText string, displayTokens []string) Query {
	return Query{FreeText: freeText, Tokens: ParseDisplayList(displayTokens)}
}

// ParseRawQuery splits a single query line into tokens and free text.
// Whitespace-separated pieces that parse as "field:value" become tokens;
// everything else is joined back into free text.
func ParseRawQuery(raw string) Query {
	var tokens []string
	var free []string
	for _, part := range strings.Fields(raw) {
		if _, ok := ParseDisplay(part); ok {
			tokens = append(tokens, part)
			continue
		}
		free = append(free, part)
	}
	return ParseQuery(strings.Join(free, " "), tokens)
}

// Matches decides whether an episode belongs in the result set. Tokens on
// the same field OR together; each constrained field must be satisfied
// (AND across fields). Only active related entities and logs participate.
func Matches(ep *model.Episode, status model.StatusFilter, q Query, now time.Time) bool {
	switch status {
	case model.StatusOK:
		if !ep.Unlocked(now) {
			return false
		}
	case model.StatusLocked:
		if ep.Unlocked(now) {
			return false
		}
	}

	if ft := strings.TrimSpace(q.FreeText); ft != "" {
		if !containsFold(ep.Title, ft) && !containsFold(ep.Body, ft) {
			return false
		}
	}

	grouped := make(map[Field][]Token)
	for _, tok := range q.Tokens {
		grouped[tok.Field] = append(grouped[tok.Field], tok)
	}
	for _, toks := range grouped {
		satisfied := false
		for _, tok := range toks {
			if matchToken(ep, tok, now) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

func matchToken(ep *model.Episode, tok Token, now time.Time) bool {
	switch tok.Field {
	case FieldTag, FieldPerson, FieldProject, FieldEmotion, FieldPlace:
		kind, _ := tok.Field.EntityKind()
		for _, ent := range ep.Entities(kind) {
			if !ent.Active() {
				continue
			}
			if containsFold(normalizeValue(tok.Field, ent.DisplayName), tok.Value) {
				return true
			}
		}
		return false

	case FieldTalkCount:
		c, ok := parseTalkCount(tok.Value)
		return ok && c.Matches(ep.ActiveLogCount())

	case FieldLastTalkedAt:
		c, ok := parseDateCriterion(tok.Value)
		if !ok {
			return false
		}
		for i := range ep.UnlockLogs {
			l := &ep.UnlockLogs[i]
			if l.Active() && c.Matches(l.TalkedAt, now) {
				return true
			}
		}
		return false

	case FieldRegisteredDate:
		c, ok := parseDateCriterion(tok.Value)
		return ok && c.Matches(ep.Date, now)

	case FieldMediaType:
		for i := range ep.UnlockLogs {
			l := &ep.UnlockLogs[i]
			if l.Active() && containsFold(CanonicalMediaType(l.MediaType), tok.Value) {
				return true
			}
		}
		return false

	case FieldReaction:
		for i := range ep.UnlockLogs {
			l := &ep.UnlockLogs[i]
			if l.Active() && strings.EqualFold(CanonicalReaction(l.Reaction), tok.Value) {
				return true
			}
		}
		return false
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
