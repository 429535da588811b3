package search

import (
	"testing"
	"time"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)

func entity(kind model.EntityKind, name string) model.RefEntity {
	return model.RefEntity{ID: "e-" + name, Kind: kind, DisplayName: name}
}

func unlockedEpisode(title string) *model.Episode {
	unlock := testNow.Add(-24 * time.Hour)
	return &model.Episode{
		ID:       "ep-" + title,
		Date:     day(2026, 3, 1),
		Title:    title,
		UnlockAt: &unlock,
	}
}

func mustToken(t *testing.T, f Field, raw string) Token {
	t.Helper()
	tok, ok := NewToken(f, raw)
	if !ok {
		t.Fatalf("NewToken(%v, %q) failed", f, raw)
	}
	return tok
}

func TestMatchesStatusFilter(t *testing.T) {
	ep := unlockedEpisode("opened")
	locked := &model.Episode{ID: "ep-locked", Title: "locked", Date: day(2026, 3, 1)}

	if !Matches(ep, model.StatusOK, Query{}, testNow) {
		t.Error("unlocked episode failed ok filter")
	}
	if Matches(locked, model.StatusOK, Query{}, testNow) {
		t.Error("locked episode passed ok filter")
	}
	if !Matches(locked, model.StatusLocked, Query{}, testNow) {
		t.Error("locked episode failed locked filter")
	}
	if Matches(ep, model.StatusLocked, Query{}, testNow) {
		t.Error("unlocked episode passed locked filter")
	}
	if !Matches(ep, model.StatusAll, Query{}, testNow) || !Matches(locked, model.StatusAll, Query{}, testNow) {
		t.Error("all filter rejected an episode")
	}
}

func TestMatchesFreeText(t *testing.T) {
	ep := unlockedEpisode("Morning Standup")
	ep.Body = "話した内容のメモ"

	if !Matches(ep, model.StatusAll, Query{FreeText: "standup"}, testNow) {
		t.Error("title substring (case-insensitive) did not match")
	}
	if !Matches(ep, model.StatusAll, Query{FreeText: "内容"}, testNow) {
		t.Error("body substring did not match")
	}
	if Matches(ep, model.StatusAll, Query{FreeText: "absent"}, testNow) {
		t.Error("unrelated text matched")
	}
	if !Matches(ep, model.StatusAll, Query{FreeText: "   "}, testNow) {
		t.Error("blank free text constrained the match")
	}
}

func TestMatchesOrWithinFieldAndAcrossFields(t *testing.T) {
	ep := unlockedEpisode("mixed")
	ep.Tags = []model.RefEntity{entity(model.KindTag, "仕事")}
	ep.Persons = []model.RefEntity{entity(model.KindPerson, "Alice")}

	orQuery := Query{Tokens: []Token{
		mustToken(t, FieldTag, "仕事"),
		mustToken(t, FieldTag, "学び"),
	}}
	if !Matches(ep, model.StatusAll, orQuery, testNow) {
		t.Error("episode with one of two same-field tokens did not match (OR)")
	}

	andQuery := Query{Tokens: []Token{
		mustToken(t, FieldTag, "仕事"),
		mustToken(t, FieldPerson, "Ali"),
	}}
	if !Matches(ep, model.StatusAll, andQuery, testNow) {
		t.Error("episode satisfying both fields did not match (AND)")
	}

	andMiss := Query{Tokens: []Token{
		mustToken(t, FieldTag, "学び"),
		mustToken(t, FieldPerson, "Ali"),
	}}
	if Matches(ep, model.StatusAll, andMiss, testNow) {
		t.Error("episode missing one constrained field matched")
	}
}

func TestMatchesIgnoresSoftDeletedRelations(t *testing.T) {
	ep := unlockedEpisode("stale")
	gone := entity(model.KindTag, "仕事")
	gone.Deleted = true
	ep.Tags = []model.RefEntity{gone}

	q := Query{Tokens: []Token{mustToken(t, FieldTag, "仕事")}}
	if Matches(ep, model.StatusAll, q, testNow) {
		t.Error("soft-deleted tag link matched")
	}
}

func TestMatchesPersonHonorific(t *testing.T) {
	ep := unlockedEpisode("people")
	ep.Persons = []model.RefEntity{entity(model.KindPerson, "田中")}

	q := Query{Tokens: []Token{mustToken(t, FieldPerson, "田中さん")}}
	if !Matches(ep, model.StatusAll, q, testNow) {
		t.Error("honorific-stripped token did not match")
	}
}

func TestMatchesTalkCount(t *testing.T) {
	ep := unlockedEpisode("talked")
	ep.UnlockLogs = []model.UnlockLog{
		{ID: "l1", TalkedAt: day(2026, 2, 10)},
		{ID: "l2", TalkedAt: day(2026, 3, 1)},
		{ID: "l3", TalkedAt: day(2026, 3, 2), Deleted: true},
	}

	if !Matches(ep, model.StatusAll, Query{Tokens: []Token{mustToken(t, FieldTalkCount, "2回")}}, testNow) {
		t.Error("exact active-log count did not match")
	}
	if Matches(ep, model.StatusAll, Query{Tokens: []Token{mustToken(t, FieldTalkCount, "3回")}}, testNow) {
		t.Error("soft-deleted log counted")
	}
	if !Matches(ep, model.StatusAll, Query{Tokens: []Token{mustToken(t, FieldTalkCount, "2回以上")}}, testNow) {
		t.Error("at-least criterion did not match")
	}
}

func TestMatchesDates(t *testing.T) {
	ep := unlockedEpisode("dated")
	ep.Date = day(2026, 2, 10)
	ep.UnlockLogs = []model.UnlockLog{{ID: "l1", TalkedAt: day(2026, 2, 10)}}

	inRange := Query{Tokens: []Token{mustToken(t, FieldLastTalkedAt, "2026/02/01~2026/02/15")}}
	if !Matches(ep, model.StatusAll, inRange, testNow) {
		t.Error("talked-at in range did not match")
	}

	ep.UnlockLogs[0].TalkedAt = day(2026, 3, 1)
	if Matches(ep, model.StatusAll, inRange, testNow) {
		t.Error("talked-at outside range matched")
	}

	open := Query{Tokens: []Token{mustToken(t, FieldLastTalkedAt, "2026/02/01~")}}
	if !Matches(ep, model.StatusAll, open, testNow) {
		t.Error("one-sided range did not match later date")
	}

	reg := Query{Tokens: []Token{mustToken(t, FieldRegisteredDate, "2026/02/01~2026/02/15")}}
	if !Matches(ep, model.StatusAll, reg, testNow) {
		t.Error("registeredDate did not evaluate the episode's own date")
	}
}

func TestMatchesMediaAndReaction(t *testing.T) {
	ep := unlockedEpisode("media")
	ep.UnlockLogs = []model.UnlockLog{
		{ID: "l1", TalkedAt: day(2026, 3, 1), MediaType: "youtube", Reaction: "○"},
	}

	if !Matches(ep, model.StatusAll, Query{Tokens: []Token{mustToken(t, FieldMediaType, "YouTube")}}, testNow) {
		t.Error("media alias did not match preset")
	}
	if !Matches(ep, model.StatusAll, Query{Tokens: []Token{mustToken(t, FieldReaction, "good")}}, testNow) {
		t.Error("reaction alias did not match symbol")
	}
	if Matches(ep, model.StatusAll, Query{Tokens: []Token{mustToken(t, FieldReaction, "bad")}}, testNow) {
		t.Error("different reaction matched")
	}
}
