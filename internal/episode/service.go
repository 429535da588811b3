// Package episode implements the episode lifecycle: creation and update
// with entity upserts, unlock-log ownership, the episode→log soft-delete
// cascade and in-process search over the active snapshot.
package episode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comado-8/EpisodeStocker-sub000/internal/entity"
	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/normalize"
	"github.com/comado-8/EpisodeStocker-sub000/internal/search"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
	"github.com/comado-8/EpisodeStocker-sub000/internal/suggest"
)

// Input carries the writable episode fields. Entity lists are raw names;
// the service resolves them to canonical entities.
type Input struct {
	Date     time.Time  `json:"date"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	UnlockAt *time.Time `json:"unlockAt,omitempty"`
	Tags     []string   `json:"tags"`
	Persons  []string   `json:"persons"`
	Projects []string   `json:"projects"`
	Emotions []string   `json:"emotions"`
	Places   []string   `json:"places"`
}

// LogInput carries the writable unlock-log fields.
type LogInput struct {
	TalkedAt      time.Time  `json:"talkedAt"`
	MediaPublicAt *time.Time `json:"mediaPublicAt,omitempty"`
	MediaType     string     `json:"mediaType"`
	ProjectName   string     `json:"projectName"`
	Reaction      string     `json:"reaction"`
	Memo          string     `json:"memo"`
}

type Service struct {
	store    store.Store
	entities *entity.Service
	ledger   *suggest.Ledger // optional
	now      func() time.Time
}

func NewService(s store.Store, ents *entity.Service, ledger *suggest.Ledger) *Service {
	return &Service{
		store:    s,
		entities: ents,
		ledger:   ledger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) validate(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("episode title is empty: %w", model.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("episode date is unset: %w", model.ErrValidation)
	}
	return nil
}

// Create stores a new episode, upserting every referenced entity and
// clamping the body to the length limit.
func (s *Service) Create(ctx context.Context, in Input) (*model.Episode, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	ep, err := s.store.Episodes().Create(ctx, &model.Episode{
		Date:      in.Date,
		Title:     strings.TrimSpace(in.Title),
		Body:      normalize.ClampBody(in.Body),
		UnlockAt:  in.UnlockAt,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.applyLinks(ctx, ep.ID, in); err != nil {
		return nil, err
	}
	s.recordUsage(in)
	return s.store.Episodes().Get(ctx, ep.ID)
}

// Update rewrites an episode's scalars and entity links. Soft-deleted
// episodes are not editable.
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Episode, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	ep, err := s.store.Episodes().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep.Deleted {
		return nil, fmt.Errorf("episode %s is deleted: %w", id, model.ErrNotFound)
	}
	ep.Date = in.Date
	ep.Title = strings.TrimSpace(in.Title)
	ep.Body = normalize.ClampBody(in.Body)
	ep.UnlockAt = in.UnlockAt
	ep.UpdatedAt = s.now()
	if _, err := s.store.Episodes().Update(ctx, ep); err != nil {
		return nil, err
	}
	if err := s.applyLinks(ctx, id, in); err != nil {
		return nil, err
	}
	s.recordUsage(in)
	return s.store.Episodes().Get(ctx, id)
}

// applyLinks upserts each raw-name list and rewrites the episode's links
// kind by kind, preserving input order.
func (s *Service) applyLinks(ctx context.Context, episodeID string, in Input) error {
	lists := map[model.EntityKind][]string{
		model.KindTag:     in.Tags,
		model.KindPerson:  in.Persons,
		model.KindProject: in.Projects,
		model.KindEmotion: in.Emotions,
		model.KindPlace:   in.Places,
	}
	for _, kind := range model.EntityKinds {
		ents, err := s.entities.UpsertMany(ctx, kind, lists[kind])
		if err != nil {
			return err
		}
		ids := make([]string, len(ents))
		for i, e := range ents {
			ids[i] = e.ID
		}
		if err := s.store.Episodes().ReplaceLinks(ctx, episodeID, kind, ids); err != nil {
			return err
		}
	}
	return nil
}

// recordUsage feeds saved values into the suggestion ledger.
func (s *Service) recordUsage(in Input) {
	if s.ledger == nil {
		return
	}
	fields := map[search.Field][]string{
		search.FieldTag:     in.Tags,
		search.FieldPerson:  in.Persons,
		search.FieldProject: in.Projects,
		search.FieldEmotion: in.Emotions,
		search.FieldPlace:   in.Places,
	}
	for f, vals := range fields {
		for _, v := range vals {
			if f == search.FieldTag {
				// Tags enter the ledger in their canonical '#'-prefixed
				// form so casing and hash variants collapse.
				name, ok := normalize.Tag(v)
				if !ok {
					continue
				}
				v = "#" + name
			}
			s.ledger.Upsert(f, v)
		}
	}
}

func (s *Service) Get(ctx context.Context, id string) (*model.Episode, error) {
	return s.store.Episodes().Get(ctx, id)
}

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]*model.Episode, error) {
	return s.store.Episodes().List(ctx, includeDeleted)
}

// SoftDelete flags the episode and cascades to its active unlock logs.
// The cascade stamps episode and logs with the same deletion time so
// Restore can tell cascade-deleted logs apart from logs the user deleted
// individually beforehand.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	ep, err := s.store.Episodes().Get(ctx, id)
	if err != nil {
		return err
	}
	if ep.Deleted {
		return nil
	}
	now := s.now()
	ep.Deleted = true
	ep.DeletedAt = &now
	ep.UpdatedAt = now
	if _, err := s.store.Episodes().Update(ctx, ep); err != nil {
		return err
	}
	for i := range ep.UnlockLogs {
		l := ep.UnlockLogs[i]
		if l.Deleted {
			continue
		}
		l.Deleted = true
		l.DeletedAt = &now
		l.UpdatedAt = now
		if _, err := s.store.Episodes().UpdateLog(ctx, &l); err != nil {
			return err
		}
	}
	return nil
}

// Restore clears the episode's flag and revives exactly the logs the
// delete cascade took down, identified by the shared deletion timestamp.
// Logs deleted individually before the cascade stay deleted.
func (s *Service) Restore(ctx context.Context, id string) (*model.Episode, error) {
	ep, err := s.store.Episodes().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ep.Deleted {
		return ep, nil
	}
	cascadeAt := ep.DeletedAt
	now := s.now()
	ep.Deleted = false
	ep.DeletedAt = nil
	ep.UpdatedAt = now
	if _, err := s.store.Episodes().Update(ctx, ep); err != nil {
		return nil, err
	}
	for i := range ep.UnlockLogs {
		l := ep.UnlockLogs[i]
		if !l.Deleted || l.DeletedAt == nil || cascadeAt == nil || !l.DeletedAt.Equal(*cascadeAt) {
			continue
		}
		l.Deleted = false
		l.DeletedAt = nil
		l.UpdatedAt = now
		if _, err := s.store.Episodes().UpdateLog(ctx, &l); err != nil {
			return nil, err
		}
	}
	return s.store.Episodes().Get(ctx, id)
}

// AddLog attaches a new unlock log to an active episode.
func (s *Service) AddLog(ctx context.Context, episodeID string, in LogInput) (*model.UnlockLog, error) {
	if in.TalkedAt.IsZero() {
		return nil, fmt.Errorf("talkedAt is unset: %w", model.ErrValidation)
	}
	ep, err := s.store.Episodes().Get(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Deleted {
		return nil, fmt.Errorf("episode %s is deleted: %w", episodeID, model.ErrNotFound)
	}
	now := s.now()
	l, err := s.store.Episodes().AddLog(ctx, &model.UnlockLog{
		EpisodeID:     episodeID,
		TalkedAt:      in.TalkedAt,
		MediaPublicAt: in.MediaPublicAt,
		MediaType:     search.CanonicalMediaType(in.MediaType),
		ProjectName:   strings.TrimSpace(in.ProjectName),
		Reaction:      search.CanonicalReaction(in.Reaction),
		Memo:          in.Memo,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	s.recordLogUsage(l)
	return l, nil
}

// UpdateLog rewrites an unlock log's fields.
func (s *Service) UpdateLog(ctx context.Context, episodeID, logID string, in LogInput) (*model.UnlockLog, error) {
	if in.TalkedAt.IsZero() {
		return nil, fmt.Errorf("talkedAt is unset: %w", model.ErrValidation)
	}
	l, err := s.findLog(ctx, episodeID, logID)
	if err != nil {
		return nil, err
	}
	if l.Deleted {
		return nil, fmt.Errorf("unlock log %s is deleted: %w", logID, model.ErrNotFound)
	}
	l.TalkedAt = in.TalkedAt
	l.MediaPublicAt = in.MediaPublicAt
	l.MediaType = search.CanonicalMediaType(in.MediaType)
	l.ProjectName = strings.TrimSpace(in.ProjectName)
	l.Reaction = search.CanonicalReaction(in.Reaction)
	l.Memo = in.Memo
	l.UpdatedAt = s.now()
	out, err := s.store.Episodes().UpdateLog(ctx, l)
	if err != nil {
		return nil, err
	}
	s.recordLogUsage(out)
	return out, nil
}

// SoftDeleteLog flags one unlock log on its own, outside any cascade.
func (s *Service) SoftDeleteLog(ctx context.Context, episodeID, logID string) error {
	l, err := s.findLog(ctx, episodeID, logID)
	if err != nil {
		return err
	}
	if l.Deleted {
		return nil
	}
	now := s.now()
	l.Deleted = true
	l.DeletedAt = &now
	l.UpdatedAt = now
	_, err = s.store.Episodes().UpdateLog(ctx, l)
	return err
}

// RestoreLog revives one unlock log. The owning episode must be active.
func (s *Service) RestoreLog(ctx context.Context, episodeID, logID string) error {
	ep, err := s.store.Episodes().Get(ctx, episodeID)
	if err != nil {
		return err
	}
	if ep.Deleted {
		return fmt.Errorf("episode %s is deleted: %w", episodeID, model.ErrNotFound)
	}
	l := findLogIn(ep, logID)
	if l == nil {
		return fmt.Errorf("unlock log %s: %w", logID, model.ErrNotFound)
	}
	if !l.Deleted {
		return nil
	}
	l.Deleted = false
	l.DeletedAt = nil
	l.UpdatedAt = s.now()
	_, err = s.store.Episodes().UpdateLog(ctx, l)
	return err
}

func (s *Service) findLog(ctx context.Context, episodeID, logID string) (*model.UnlockLog, error) {
	ep, err := s.store.Episodes().Get(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if l := findLogIn(ep, logID); l != nil {
		return l, nil
	}
	return nil, fmt.Errorf("unlock log %s: %w", logID, model.ErrNotFound)
}

func findLogIn(ep *model.Episode, logID string) *model.UnlockLog {
	for i := range ep.UnlockLogs {
		if ep.UnlockLogs[i].ID == logID {
			return &ep.UnlockLogs[i]
		}
	}
	return nil
}

func (s *Service) recordLogUsage(l *model.UnlockLog) {
	if s.ledger == nil {
		return
	}
	s.ledger.Upsert(search.FieldMediaType, l.MediaType)
	s.ledger.Upsert(search.FieldProject, l.ProjectName)
	s.ledger.Upsert(search.FieldReaction, l.Reaction)
}

// Search filters active episodes through the token matcher. The raw query
// is display-token text plus free text, as produced by the search box.
func (s *Service) Search(ctx context.Context, status model.StatusFilter, rawQuery string) ([]*model.Episode, error) {
	eps, err := s.store.Episodes().List(ctx, false)
	if err != nil {
		return nil, err
	}
	q := search.ParseRawQuery(rawQuery)
	now := s.now()
	out := make([]*model.Episode, 0, len(eps))
	for _, ep := range eps {
		if search.Matches(ep, status, q, now) {
			out = append(out, ep)
		}
	}
	s.recordQueryUsage(q)
	return out, nil
}

// recordQueryUsage bumps ledger recency for every token used in a search.
func (s *Service) recordQueryUsage(q search.Query) {
	if s.ledger == nil {
		return
	}
	for _, tok := range q.Tokens {
		v := tok.Value
		if tok.Field == search.FieldTag {
			v = "#" + v
		}
		s.ledger.Upsert(tok.Field, v)
	}
}

// IsNotFound reports whether err wraps the not-found sentinel. Convenience
// for API handlers.
func IsNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }
