// Package entity implements normalization-driven upsert and soft-delete
// semantics for the shared reference-entity pools. All writes funnel through
// Upsert so that at most one active entity exists per (kind, comparison key).
package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/normalize"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// normalizeFor maps a raw name to (display, comparisonKey) per kind rules.
// Tags go through hash-strip, NFKC, whitespace removal and lowercasing and
// display the canonical form; the other kinds keep the trimmed input as
// display and compare lowercased.
func normalizeFor(kind model.EntityKind, raw string) (string, string, error) {
	switch kind {
	case model.KindTag:
		canonical, ok := normalize.Tag(raw)
		if !ok {
			return "", "", fmt.Errorf("tag name %q normalizes to empty: %w", raw, model.ErrValidation)
		}
		if res := normalize.ValidateTagName(canonical); res.Verdict != normalize.TagNameValid {
			return "", "", fmt.Errorf("tag name %q rejected (%s): %w", raw, res.Verdict, model.ErrValidation)
		}
		return canonical, canonical, nil
	case model.KindPerson:
		return boundedName(kind, raw, normalize.PersonNameMaxLength)
	case model.KindProject:
		return boundedName(kind, raw, normalize.ProjectNameMaxLength)
	case model.KindPlace:
		return boundedName(kind, raw, normalize.PlaceNameMaxLength)
	default:
		display, key, ok := normalize.Name(raw)
		if !ok {
			return "", "", fmt.Errorf("%s name is empty: %w", kind, model.ErrValidation)
		}
		return display, key, nil
	}
}

func boundedName(kind model.EntityKind, raw string, max int) (string, string, error) {
	display, key, ok := normalize.Name(raw)
	if !ok {
		return "", "", fmt.Errorf("%s name is empty: %w", kind, model.ErrValidation)
	}
	if _, ok := normalize.BoundedName(display, max); !ok {
		return "", "", fmt.Errorf("%s name %q exceeds %d characters: %w", kind, display, max, model.ErrValidation)
	}
	return display, key, nil
}

// Upsert resolves a raw name to its canonical entity, creating or reviving
// as needed. A soft-deleted entity with the same comparison key is revived
// rather than duplicated; an active one has its display name refreshed to the
// latest input.
func (s *Service) Upsert(ctx context.Context, kind model.EntityKind, raw string) (*model.RefEntity, error) {
	display, key, err := normalizeFor(kind, raw)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Entities().FindByKey(ctx, kind, key)
	if err == nil {
		existing.Deleted = false
		existing.DeletedAt = nil
		existing.DisplayName = display
		// A found upsert always counts as a touch.
		existing.UpdatedAt = s.now()
		return s.store.Entities().Update(ctx, existing)
	}
	if !isNotFound(err) {
		return nil, err
	}

	now := s.now()
	return s.store.Entities().Create(ctx, &model.RefEntity{
		Kind:          kind,
		DisplayName:   display,
		ComparisonKey: key,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// UpsertMany upserts a list of raw names, collapsing duplicates onto their
// first occurrence. Names that fail normalization, whether empty, over the
// length limit or carrying disallowed characters, are dropped rather than
// failing the batch; the interactive validation path is the place to report
// them. The returned slice preserves input order of the surviving names.
func (s *Service) UpsertMany(ctx context.Context, kind model.EntityKind, raws []string) ([]*model.RefEntity, error) {
	seen := make(map[string]bool, len(raws))
	out := make([]*model.RefEntity, 0, len(raws))
	for _, raw := range raws {
		_, key, err := normalizeFor(kind, raw)
		if err != nil {
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		e, err := s.Upsert(ctx, kind, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.RefEntity, error) {
	return s.store.Entities().Get(ctx, id)
}

func (s *Service) List(ctx context.Context, kind model.EntityKind, includeDeleted bool) ([]*model.RefEntity, error) {
	return s.store.Entities().List(ctx, kind, includeDeleted)
}

// SoftDelete flags the entity deleted. For tags it additionally unlinks the
// tag from every active episode and returns those episode ids; the caller
// keeps them as the capability to undo the cascade via Restore. Deleting an
// already-deleted entity is a no-op.
func (s *Service) SoftDelete(ctx context.Context, id string) ([]string, error) {
	e, err := s.store.Entities().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Deleted {
		return nil, nil
	}

	now := s.now()
	e.Deleted = true
	e.DeletedAt = &now
	e.UpdatedAt = now
	if _, err := s.store.Entities().Update(ctx, e); err != nil {
		return nil, err
	}
	if e.Kind != model.KindTag {
		return nil, nil
	}
	return s.unlinkFromActiveEpisodes(ctx, e, now)
}

func (s *Service) unlinkFromActiveEpisodes(ctx context.Context, e *model.RefEntity, now time.Time) ([]string, error) {
	eps, err := s.store.Episodes().List(ctx, false)
	if err != nil {
		return nil, err
	}
	var affected []string
	for _, ep := range eps {
		ents := ep.Entities(e.Kind)
		remaining := make([]string, 0, len(ents))
		hit := false
		for i := range ents {
			if ents[i].ID == e.ID {
				hit = true
				continue
			}
			remaining = append(remaining, ents[i].ID)
		}
		if !hit {
			continue
		}
		if err := s.store.Episodes().ReplaceLinks(ctx, ep.ID, e.Kind, remaining); err != nil {
			return nil, err
		}
		ep.UpdatedAt = now
		if _, err := s.store.Episodes().Update(ctx, ep); err != nil {
			return nil, err
		}
		affected = append(affected, ep.ID)
	}
	return affected, nil
}

// Restore revives a soft-deleted entity. affectedEpisodeIDs is the capability
// returned by the corresponding SoftDelete; the tag is relinked only to the
// listed episodes that are still active. Restoring fails with ErrConflict
// when a different active entity has since claimed the same comparison key.
func (s *Service) Restore(ctx context.Context, id string, affectedEpisodeIDs []string) (*model.RefEntity, error) {
	e, err := s.store.Entities().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Deleted {
		return e, nil
	}

	if cur, err := s.store.Entities().FindByKey(ctx, e.Kind, e.ComparisonKey); err == nil {
		if cur.ID != e.ID && !cur.Deleted {
			return nil, fmt.Errorf("%s %q already active: %w", e.Kind, cur.DisplayName, model.ErrConflict)
		}
	} else if !isNotFound(err) {
		return nil, err
	}

	now := s.now()
	e.Deleted = false
	e.DeletedAt = nil
	e.UpdatedAt = now
	restored, err := s.store.Entities().Update(ctx, e)
	if err != nil {
		return nil, err
	}
	if e.Kind != model.KindTag {
		return restored, nil
	}

	for _, epID := range affectedEpisodeIDs {
		ep, err := s.store.Episodes().Get(ctx, epID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if !ep.Active() {
			continue
		}
		ids := make([]string, 0, len(ep.Tags)+1)
		linked := false
		for i := range ep.Tags {
			if ep.Tags[i].ID == e.ID {
				linked = true
			}
			ids = append(ids, ep.Tags[i].ID)
		}
		if linked {
			continue
		}
		ids = append(ids, e.ID)
		if err := s.store.Episodes().ReplaceLinks(ctx, ep.ID, model.KindTag, ids); err != nil {
			return nil, err
		}
		ep.UpdatedAt = now
		if _, err := s.store.Episodes().Update(ctx, ep); err != nil {
			return nil, err
		}
	}
	return restored, nil
}

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }
