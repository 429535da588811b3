package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

func corpus() []*model.Episode {
	e1 := unlockedEpisode("one")
	e1.Tags = []model.RefEntity{entity(model.KindTag, "仕事")}
	e1.Persons = []model.RefEntity{entity(model.KindPerson, "Alpha")}

	e2 := unlockedEpisode("two")
	e2.Tags = []model.RefEntity{entity(model.KindTag, "仕事"), entity(model.KindTag, "学び")}
	e2.Persons = []model.RefEntity{entity(model.KindPerson, "alpha"), entity(model.KindPerson, "Beta")}
	e2.UnlockLogs = []model.UnlockLog{{ID: "l1", TalkedAt: day(2026, 3, 1), MediaType: "ラジオ", Reaction: "良い"}}

	return []*model.Episode{e1, e2}
}

func TestSuggestionsEmptyInputYieldsNothing(t *testing.T) {
	assert.Empty(t, Suggestions(Query{}, corpus(), 3))
	assert.Empty(t, Suggestions(Query{FreeText: "  "}, corpus(), 3))
}

func TestSuggestionsActiveFieldOnly(t *testing.T) {
	f := FieldTag
	items := Suggestions(Query{ActiveField: &f}, corpus(), 3)
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.Equal(t, FieldTag, it.Field)
	}
	// 仕事 appears twice, 学び once: count ordering.
	assert.Equal(t, "仕事", items[0].Value)
	assert.Equal(t, "学び", items[1].Value)
}

func TestSuggestionsMergesCaseVariants(t *testing.T) {
	f := FieldPerson
	items := Suggestions(Query{ActiveField: &f, FreeText: "alp"}, corpus(), 3)
	require.Len(t, items, 1)
	// First-seen casing wins for display.
	assert.Equal(t, "Alpha", items[0].Value)
}

func TestSuggestionsFreeTextSpansFields(t *testing.T) {
	items := Suggestions(Query{FreeText: "a"}, corpus(), 3)
	require.NotEmpty(t, items)
	// Output follows field enumeration order.
	lastField := Field(-1)
	seen := map[string]int{}
	for _, it := range items {
		if it.Field < lastField {
			t.Fatalf("fields out of enumeration order: %v after %v", it.Field, lastField)
		}
		lastField = it.Field
		seen[it.Field.String()+":"+it.Value]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "duplicate suggestion %s", key)
	}
}

func TestSuggestionsPresetOrderAndBuckets(t *testing.T) {
	f := FieldTalkCount
	items := Suggestions(Query{ActiveField: &f}, corpus(), 10)
	require.Len(t, items, len(TalkCountBuckets))
	for i, b := range TalkCountBuckets {
		assert.Equal(t, b, items[i].Value)
	}

	f = FieldReaction
	items = Suggestions(Query{ActiveField: &f}, corpus(), 3)
	require.Len(t, items, 1)
	assert.Equal(t, "良い", items[0].Value)
}

func TestSuggestionsPrefixBeforeContainment(t *testing.T) {
	e := unlockedEpisode("prefix")
	e.Persons = []model.RefEntity{
		entity(model.KindPerson, "xbeta"),
		entity(model.KindPerson, "betax"),
	}
	f := FieldPerson
	items := Suggestions(Query{ActiveField: &f, FreeText: "beta"}, []*model.Episode{e}, 3)
	require.Len(t, items, 2)
	assert.Equal(t, "betax", items[0].Value)
	assert.Equal(t, "xbeta", items[1].Value)
}

func TestSuggestionsMaxPerField(t *testing.T) {
	e := unlockedEpisode("many")
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5"} {
		e.Tags = append(e.Tags, entity(model.KindTag, name))
	}
	f := FieldTag
	items := Suggestions(Query{ActiveField: &f}, []*model.Episode{e}, 3)
	assert.Len(t, items, 3)
}

func TestSuggestionsSkipSoftDeleted(t *testing.T) {
	e := unlockedEpisode("gone")
	dead := entity(model.KindTag, "消した")
	dead.Deleted = true
	e.Tags = []model.RefEntity{dead}
	deadEp := unlockedEpisode("deadep")
	deadEp.Deleted = true
	deadEp.Tags = []model.RefEntity{entity(model.KindTag, "検索不可")}

	f := FieldTag
	items := Suggestions(Query{ActiveField: &f}, []*model.Episode{e, deadEp}, 5)
	assert.Empty(t, items)
}
