package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := memory.New()
	svc := NewService(st)
	return svc, st
}

func TestUpsert_IdempotentOnComparisonKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Upsert(ctx, model.KindTag, "#仕事")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	b, err := svc.Upsert(ctx, model.KindTag, "＃ 仕事 ")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("upsert not idempotent: %s vs %s", a.ID, b.ID)
	}
	if a.DisplayName != "仕事" || a.ComparisonKey != "仕事" {
		t.Fatalf("tag canonical form: %+v", a)
	}

	lst, err := svc.List(ctx, model.KindTag, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lst) != 1 {
		t.Fatalf("want single entity, got %d", len(lst))
	}
}

func TestUpsert_CaseInsensitiveFreeName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Upsert(ctx, model.KindPerson, "Alice")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b, err := svc.Upsert(ctx, model.KindPerson, "  alice ")
	if err != nil {
		t.Fatalf("upsert variant: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("case variants should collapse: %s vs %s", a.ID, b.ID)
	}
	// Display tracks the latest raw input.
	if b.DisplayName != "alice" {
		t.Fatalf("display name: got %q", b.DisplayName)
	}
}

func TestUpsert_FoundMatchBumpsUpdatedAt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	clock := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	a, err := svc.Upsert(ctx, model.KindTag, "仕事")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	clock = clock.Add(time.Hour)
	b, err := svc.Upsert(ctx, model.KindTag, "仕事")
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if b.ID != a.ID {
		t.Fatalf("want same entity, got %s vs %s", a.ID, b.ID)
	}
	if !b.UpdatedAt.Equal(clock) {
		t.Fatalf("found upsert must bump updatedAt: got %v, want %v", b.UpdatedAt, clock)
	}
	if !b.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("createdAt must not move: got %v, want %v", b.CreatedAt, a.CreatedAt)
	}
}

func TestUpsert_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		kind model.EntityKind
		raw  string
	}{
		{model.KindTag, "###"},
		{model.KindTag, "もじもじもじもじもじもじもじもじもじもじも"}, // 21 code points
		{model.KindTag, "tag🙂"},
		{model.KindPerson, ""},
		{model.KindPerson, "ながいなまえすぎるamountover"}, // over 10 graphemes
		{model.KindProject, "あいうえおかきくけこあいうえおかきくけこあ"}, // over 20
	}
	for _, tc := range cases {
		if _, err := svc.Upsert(ctx, tc.kind, tc.raw); !errors.Is(err, model.ErrValidation) {
			t.Errorf("Upsert(%s, %q): want ErrValidation, got %v", tc.kind, tc.raw, err)
		}
	}
}

func TestUpsert_RevivesSoftDeleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Upsert(ctx, model.KindTag, "学び")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	b, err := svc.Upsert(ctx, model.KindTag, "学び")
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if b.ID != a.ID {
		t.Fatalf("want revived entity %s, got new %s", a.ID, b.ID)
	}
	if b.Deleted || b.DeletedAt != nil {
		t.Fatalf("revived entity still flagged: %+v", b)
	}
}

func TestUpsertMany_DedupAndOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	got, err := svc.UpsertMany(ctx, model.KindTag, []string{"#仕事", "学び", " #仕事", "", "趣味"})
	if err != nil {
		t.Fatalf("upsert many: %v", err)
	}
	want := []string{"仕事", "学び", "趣味"}
	if len(got) != len(want) {
		t.Fatalf("want %d entities, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].DisplayName != w {
			t.Errorf("position %d: want %q, got %q", i, w, got[i].DisplayName)
		}
	}
}

func TestUpsertMany_SkipsInvalidNames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// One over-limit person name must not sink the batch.
	got, err := svc.UpsertMany(ctx, model.KindPerson, []string{"あいうえおかきくけこさ", "田中"})
	if err != nil {
		t.Fatalf("upsert many: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "田中" {
		t.Fatalf("want only the valid name kept, got %+v", got)
	}

	// Same for a tag with disallowed characters.
	got, err = svc.UpsertMany(ctx, model.KindTag, []string{"日記🙂", "#日記"})
	if err != nil {
		t.Fatalf("upsert many tags: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "日記" {
		t.Fatalf("want only the valid tag kept, got %+v", got)
	}

	lst, err := svc.List(ctx, model.KindPerson, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lst) != 1 {
		t.Fatalf("invalid names must leave no entity behind, got %d", len(lst))
	}
}

// linkEpisode creates an active episode linked to the given tags.
func linkEpisode(t *testing.T, st store.Store, title string, tagIDs ...string) *model.Episode {
	t.Helper()
	ctx := context.Background()
	ep, err := st.Episodes().Create(ctx, &model.Episode{
		Date:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Title: title,
	})
	if err != nil {
		t.Fatalf("create episode: %v", err)
	}
	if err := st.Episodes().ReplaceLinks(ctx, ep.ID, model.KindTag, tagIDs); err != nil {
		t.Fatalf("link tags: %v", err)
	}
	return ep
}

func TestSoftDelete_TagCascadeReturnsActiveEpisodes(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tag, err := svc.Upsert(ctx, model.KindTag, "仕事")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e1 := linkEpisode(t, st, "active", tag.ID)
	e2 := linkEpisode(t, st, "deleted", tag.ID)

	// Soft-delete e2 before the cascade; only e1 should be touched.
	e2Rec, err := st.Episodes().Get(ctx, e2.ID)
	if err != nil {
		t.Fatalf("get e2: %v", err)
	}
	now := time.Now().UTC()
	e2Rec.Deleted = true
	e2Rec.DeletedAt = &now
	if _, err := st.Episodes().Update(ctx, e2Rec); err != nil {
		t.Fatalf("delete e2: %v", err)
	}

	affected, err := svc.SoftDelete(ctx, tag.ID)
	if err != nil {
		t.Fatalf("soft delete tag: %v", err)
	}
	if len(affected) != 1 || affected[0] != e1.ID {
		t.Fatalf("want affected exactly [%s], got %v", e1.ID, affected)
	}

	got1, err := st.Episodes().Get(ctx, e1.ID)
	if err != nil {
		t.Fatalf("get e1: %v", err)
	}
	if len(got1.Tags) != 0 {
		t.Fatalf("e1 should be unlinked, tags=%v", got1.Tags)
	}
	got2, err := st.Episodes().Get(ctx, e2.ID)
	if err != nil {
		t.Fatalf("get e2: %v", err)
	}
	if len(got2.Tags) != 1 {
		t.Fatalf("e2 links should be untouched, tags=%v", got2.Tags)
	}
}

func TestSoftDelete_FreeNameFlagsOnly(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	p, err := svc.Upsert(ctx, model.KindPerson, "田中")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ep, err := st.Episodes().Create(ctx, &model.Episode{
		Date: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Title: "t",
	})
	if err != nil {
		t.Fatalf("create episode: %v", err)
	}
	if err := st.Episodes().ReplaceLinks(ctx, ep.ID, model.KindPerson, []string{p.ID}); err != nil {
		t.Fatalf("link: %v", err)
	}

	affected, err := svc.SoftDelete(ctx, p.ID)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if affected != nil {
		t.Fatalf("free-name delete must not cascade, got %v", affected)
	}
	got, err := st.Episodes().Get(ctx, ep.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Persons) != 1 || !got.Persons[0].Deleted {
		t.Fatalf("link should remain with deleted snapshot: %+v", got.Persons)
	}
}

func TestSoftDelete_AlreadyDeletedIsNoop(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tag, err := svc.Upsert(ctx, model.KindTag, "仕事")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ep := linkEpisode(t, st, "e", tag.ID)
	if _, err := svc.SoftDelete(ctx, tag.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	// Relink manually; a second delete must not cascade again.
	if err := st.Episodes().ReplaceLinks(ctx, ep.ID, model.KindTag, []string{tag.ID}); err != nil {
		t.Fatalf("relink: %v", err)
	}
	affected, err := svc.SoftDelete(ctx, tag.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if affected != nil {
		t.Fatalf("repeat delete should be a no-op, got %v", affected)
	}
}

func TestRestore_RelinksOnlyStillActiveEpisodes(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tag, err := svc.Upsert(ctx, model.KindTag, "仕事")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e1 := linkEpisode(t, st, "stays", tag.ID)
	e2 := linkEpisode(t, st, "goes", tag.ID)

	affected, err := svc.SoftDelete(ctx, tag.ID)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if len(affected) != 2 {
		t.Fatalf("want both episodes affected, got %v", affected)
	}

	// e2 is deleted between the cascade and the restore.
	e2Rec, err := st.Episodes().Get(ctx, e2.ID)
	if err != nil {
		t.Fatalf("get e2: %v", err)
	}
	now := time.Now().UTC()
	e2Rec.Deleted = true
	e2Rec.DeletedAt = &now
	if _, err := st.Episodes().Update(ctx, e2Rec); err != nil {
		t.Fatalf("delete e2: %v", err)
	}

	restored, err := svc.Restore(ctx, tag.ID, affected)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Deleted {
		t.Fatalf("restored entity still flagged")
	}

	got1, err := st.Episodes().Get(ctx, e1.ID)
	if err != nil {
		t.Fatalf("get e1: %v", err)
	}
	if len(got1.Tags) != 1 || got1.Tags[0].ID != tag.ID {
		t.Fatalf("e1 should be relinked, tags=%v", got1.Tags)
	}
	got2, err := st.Episodes().Get(ctx, e2.ID)
	if err != nil {
		t.Fatalf("get e2: %v", err)
	}
	if len(got2.Tags) != 0 {
		t.Fatalf("deleted e2 must not be relinked, tags=%v", got2.Tags)
	}
}

func TestRestore_ConflictWithNewActiveOwner(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	old, err := svc.Upsert(ctx, model.KindPerson, "山田")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.SoftDelete(ctx, old.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// A second active owner of the key, created behind the service's back.
	if _, err := st.Entities().Create(ctx, &model.RefEntity{
		Kind: model.KindPerson, DisplayName: "山田", ComparisonKey: "山田",
	}); err != nil {
		t.Fatalf("create rival: %v", err)
	}

	if _, err := svc.Restore(ctx, old.ID, nil); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}
