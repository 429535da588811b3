package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	if err := s.HealthPing(ctx); err != nil {
		t.Fatalf("HealthPing: %v", err)
	}

	// Entities
	tag, err := s.Entities().Create(ctx, &model.RefEntity{
		Kind: model.KindTag, DisplayName: "仕事", ComparisonKey: "仕事",
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if tag.ID == "" || tag.CreatedAt.IsZero() || tag.UpdatedAt.IsZero() {
		t.Fatalf("CreateEntity: missing defaults: %+v", tag)
	}
	if got, err := s.Entities().Get(ctx, tag.ID); err != nil || got.DisplayName != "仕事" {
		t.Fatalf("GetEntity: got=%+v err=%v", got, err)
	}
	if got, err := s.Entities().FindByKey(ctx, model.KindTag, "仕事"); err != nil || got.ID != tag.ID {
		t.Fatalf("FindByKey: got=%+v err=%v", got, err)
	}
	if _, err := s.Entities().FindByKey(ctx, model.KindTag, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("FindByKey missing: want ErrNotFound, got %v", err)
	}
	if _, err := s.Entities().Get(ctx, uuid.New().String()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetEntity missing: want ErrNotFound, got %v", err)
	}

	person, err := s.Entities().Create(ctx, &model.RefEntity{
		Kind: model.KindPerson, DisplayName: "田中", ComparisonKey: "田中",
	})
	if err != nil {
		t.Fatalf("CreateEntity person: %v", err)
	}

	// Soft delete keeps the row addressable by key.
	now := time.Now().UTC()
	tag.Deleted = true
	tag.DeletedAt = &now
	tag.UpdatedAt = now
	if _, err := s.Entities().Update(ctx, tag); err != nil {
		t.Fatalf("UpdateEntity delete: %v", err)
	}
	if got, err := s.Entities().FindByKey(ctx, model.KindTag, "仕事"); err != nil || !got.Deleted {
		t.Fatalf("FindByKey deleted: got=%+v err=%v", got, err)
	}
	if lst, err := s.Entities().List(ctx, model.KindTag, false); err != nil || len(lst) != 0 {
		t.Fatalf("ListEntities active: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Entities().List(ctx, model.KindTag, true); err != nil || len(lst) != 1 {
		t.Fatalf("ListEntities all: n=%d err=%v", len(lst), err)
	}

	// Revive, rename.
	tag.Deleted = false
	tag.DeletedAt = nil
	tag.DisplayName = "#仕事"
	if _, err := s.Entities().Update(ctx, tag); err != nil {
		t.Fatalf("UpdateEntity revive: %v", err)
	}
	if got, err := s.Entities().Get(ctx, tag.ID); err != nil || got.Deleted || got.DisplayName != "#仕事" {
		t.Fatalf("GetEntity revived: got=%+v err=%v", got, err)
	}

	// Episodes
	unlock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ep, err := s.Episodes().Create(ctx, &model.Episode{
		Date:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Title:    "打ち合わせ",
		Body:     "body",
		UnlockAt: &unlock,
	})
	if err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}
	if ep.ID == "" {
		t.Fatalf("CreateEpisode: empty id")
	}

	tag2, err := s.Entities().Create(ctx, &model.RefEntity{
		Kind: model.KindTag, DisplayName: "学び", ComparisonKey: "学び",
	})
	if err != nil {
		t.Fatalf("CreateEntity tag2: %v", err)
	}
	if err := s.Episodes().ReplaceLinks(ctx, ep.ID, model.KindTag, []string{tag2.ID, tag.ID}); err != nil {
		t.Fatalf("ReplaceLinks tags: %v", err)
	}
	if err := s.Episodes().ReplaceLinks(ctx, ep.ID, model.KindPerson, []string{person.ID}); err != nil {
		t.Fatalf("ReplaceLinks persons: %v", err)
	}

	got, err := s.Episodes().Get(ctx, ep.ID)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0].ID != tag2.ID || got.Tags[1].ID != tag.ID {
		t.Fatalf("GetEpisode tags: want [%s %s] order, got %+v", tag2.ID, tag.ID, got.Tags)
	}
	if len(got.Persons) != 1 || got.Persons[0].ID != person.ID {
		t.Fatalf("GetEpisode persons: got %+v", got.Persons)
	}
	if got.UnlockAt == nil || !got.UnlockAt.Equal(unlock) {
		t.Fatalf("GetEpisode unlockAt: got %v", got.UnlockAt)
	}

	// Rewriting links of one kind leaves other kinds alone.
	if err := s.Episodes().ReplaceLinks(ctx, ep.ID, model.KindTag, []string{tag.ID}); err != nil {
		t.Fatalf("ReplaceLinks rewrite: %v", err)
	}
	got, err = s.Episodes().Get(ctx, ep.ID)
	if err != nil {
		t.Fatalf("GetEpisode after rewrite: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0].ID != tag.ID || len(got.Persons) != 1 {
		t.Fatalf("ReplaceLinks rewrite: tags=%+v persons=%+v", got.Tags, got.Persons)
	}

	// Unlock logs
	lg, err := s.Episodes().AddLog(ctx, &model.UnlockLog{
		EpisodeID: ep.ID,
		TalkedAt:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		MediaType: "YouTube",
		Reaction:  "良い",
	})
	if err != nil {
		t.Fatalf("AddLog: %v", err)
	}
	if lg.ID == "" {
		t.Fatalf("AddLog: empty id")
	}
	lg.Memo = "updated"
	if _, err := s.Episodes().UpdateLog(ctx, lg); err != nil {
		t.Fatalf("UpdateLog: %v", err)
	}
	got, err = s.Episodes().Get(ctx, ep.ID)
	if err != nil {
		t.Fatalf("GetEpisode with logs: %v", err)
	}
	if len(got.UnlockLogs) != 1 || got.UnlockLogs[0].Memo != "updated" {
		t.Fatalf("GetEpisode logs: got %+v", got.UnlockLogs)
	}

	// Episode soft delete and listing.
	got.Deleted = true
	del := time.Now().UTC()
	got.DeletedAt = &del
	if _, err := s.Episodes().Update(ctx, got); err != nil {
		t.Fatalf("UpdateEpisode delete: %v", err)
	}
	if lst, err := s.Episodes().List(ctx, false); err != nil || len(lst) != 0 {
		t.Fatalf("ListEpisodes active: n=%d err=%v", len(lst), err)
	}
	lst, err := s.Episodes().List(ctx, true)
	if err != nil || len(lst) != 1 {
		t.Fatalf("ListEpisodes all: n=%d err=%v", len(lst), err)
	}
	if len(lst[0].Tags) != 1 || len(lst[0].UnlockLogs) != 1 {
		t.Fatalf("ListEpisodes aggregate: tags=%d logs=%d", len(lst[0].Tags), len(lst[0].UnlockLogs))
	}
	if _, err := s.Episodes().Get(ctx, uuid.New().String()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetEpisode missing: want ErrNotFound, got %v", err)
	}

	// Suggestions: Save upserts by id.
	sg := model.Suggestion{
		ID: uuid.New().String(), Field: "tag", Value: "#仕事",
		UsageCount: 1, LastUsedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Suggestions().Save(ctx, sg); err != nil {
		t.Fatalf("SaveSuggestion: %v", err)
	}
	sg.UsageCount = 2
	if err := s.Suggestions().Save(ctx, sg); err != nil {
		t.Fatalf("SaveSuggestion upsert: %v", err)
	}
	sgs, err := s.Suggestions().List(ctx)
	if err != nil || len(sgs) != 1 {
		t.Fatalf("ListSuggestions: n=%d err=%v", len(sgs), err)
	}
	if sgs[0].UsageCount != 2 || sgs[0].Value != "#仕事" {
		t.Fatalf("ListSuggestions: got %+v", sgs[0])
	}
}
