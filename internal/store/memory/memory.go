// Package memory implements store.Store over plain in-process maps. It is
// the canonical driver: the engine operates on complete in-memory
// snapshots for a single local user, and the suite in storetest pins the
// other drivers to this one's behavior.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
)

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{
		entities: make(map[string]*model.RefEntity),
		episodes: make(map[string]*episodeRec),
		logs:     make(map[string]*model.UnlockLog),
		suggs:    make(map[string]model.Suggestion),
	}
}

type episodeRec struct {
	ep     model.Episode // scalar fields only
	links  map[model.EntityKind][]string
	logIDs []string
}

type memStore struct {
	mu sync.Mutex

	entities    map[string]*model.RefEntity
	entityOrder []string
	episodes    map[string]*episodeRec
	epOrder     []string
	logs        map[string]*model.UnlockLog
	suggs       map[string]model.Suggestion
	suggOrder   []string
}

func (s *memStore) Entities() store.Entities       { return (*memEntities)(s) }
func (s *memStore) Episodes() store.Episodes       { return (*memEpisodes)(s) }
func (s *memStore) Suggestions() store.Suggestions { return (*memSuggestions)(s) }

func (s *memStore) HealthPing(ctx context.Context) error { return ctx.Err() }

// --- Entities ---

type memEntities memStore

func (s *memEntities) Create(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *e
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now
	}
	if _, exists := s.entities[out.ID]; exists {
		return nil, fmt.Errorf("entity %s: %w", out.ID, model.ErrConflict)
	}
	s.entities[out.ID] = &out
	s.entityOrder = append(s.entityOrder, out.ID)
	cp := out
	return &cp, nil
}

func (s *memEntities) Get(ctx context.Context, id string) (*model.RefEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, model.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *memEntities) FindByKey(ctx context.Context, kind model.EntityKind, key string) (*model.RefEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted *model.RefEntity
	for _, id := range s.entityOrder {
		e := s.entities[id]
		if e.Kind != kind || e.ComparisonKey != key {
			continue
		}
		cp := *e
		if !cp.Deleted {
			return &cp, nil
		}
		if deleted == nil {
			deleted = &cp
		}
	}
	if deleted != nil {
		return deleted, nil
	}
	return nil, fmt.Errorf("entity %s/%s: %w", kind, key, model.ErrNotFound)
}

func (s *memEntities) List(ctx context.Context, kind model.EntityKind, includeDeleted bool) ([]*model.RefEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.RefEntity
	for _, id := range s.entityOrder {
		e := s.entities[id]
		if e.Kind != kind {
			continue
		}
		if e.Deleted && !includeDeleted {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memEntities) Update(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entities[e.ID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", e.ID, model.ErrNotFound)
	}
	up := *e
	up.Kind = cur.Kind
	up.CreatedAt = cur.CreatedAt
	if up.UpdatedAt.IsZero() {
		up.UpdatedAt = time.Now().UTC()
	}
	s.entities[e.ID] = &up
	cp := up
	return &cp, nil
}

// --- Episodes ---

type memEpisodes memStore

func (s *memEpisodes) Create(ctx context.Context, e *model.Episode) (*model.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &episodeRec{ep: *e, links: make(map[model.EntityKind][]string)}
	rec.ep.Tags, rec.ep.Persons, rec.ep.Projects, rec.ep.Emotions, rec.ep.Places = nil, nil, nil, nil, nil
	rec.ep.UnlockLogs = nil
	if rec.ep.ID == "" {
		rec.ep.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.ep.CreatedAt.IsZero() {
		rec.ep.CreatedAt = now
	}
	if rec.ep.UpdatedAt.IsZero() {
		rec.ep.UpdatedAt = now
	}
	if _, exists := s.episodes[rec.ep.ID]; exists {
		return nil, fmt.Errorf("episode %s: %w", rec.ep.ID, model.ErrConflict)
	}
	s.episodes[rec.ep.ID] = rec
	s.epOrder = append(s.epOrder, rec.ep.ID)
	return s.aggregate(rec), nil
}

func (s *memEpisodes) Get(ctx context.Context, id string) (*model.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, model.ErrNotFound)
	}
	return s.aggregate(rec), nil
}

func (s *memEpisodes) List(ctx context.Context, includeDeleted bool) ([]*model.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Episode
	for _, id := range s.epOrder {
		rec := s.episodes[id]
		if rec.ep.Deleted && !includeDeleted {
			continue
		}
		out = append(out, s.aggregate(rec))
	}
	return out, nil
}

func (s *memEpisodes) Update(ctx context.Context, e *model.Episode) (*model.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.episodes[e.ID]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", e.ID, model.ErrNotFound)
	}
	created := rec.ep.CreatedAt
	rec.ep = *e
	rec.ep.Tags, rec.ep.Persons, rec.ep.Projects, rec.ep.Emotions, rec.ep.Places = nil, nil, nil, nil, nil
	rec.ep.UnlockLogs = nil
	rec.ep.CreatedAt = created
	if rec.ep.UpdatedAt.IsZero() {
		rec.ep.UpdatedAt = time.Now().UTC()
	}
	return s.aggregate(rec), nil
}

func (s *memEpisodes) ReplaceLinks(ctx context.Context, episodeID string, kind model.EntityKind, entityIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.episodes[episodeID]
	if !ok {
		return fmt.Errorf("episode %s: %w", episodeID, model.ErrNotFound)
	}
	for _, id := range entityIDs {
		if _, ok := s.entities[id]; !ok {
			return fmt.Errorf("entity %s: %w", id, model.ErrNotFound)
		}
	}
	rec.links[kind] = append([]string(nil), entityIDs...)
	return nil
}

func (s *memEpisodes) AddLog(ctx context.Context, l *model.UnlockLog) (*model.UnlockLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.episodes[l.EpisodeID]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", l.EpisodeID, model.ErrNotFound)
	}
	cp := *l
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	s.logs[cp.ID] = &cp
	rec.logIDs = append(rec.logIDs, cp.ID)
	out := cp
	return &out, nil
}

func (s *memEpisodes) UpdateLog(ctx context.Context, l *model.UnlockLog) (*model.UnlockLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.logs[l.ID]
	if !ok {
		return nil, fmt.Errorf("unlock log %s: %w", l.ID, model.ErrNotFound)
	}
	up := *l
	up.EpisodeID = cur.EpisodeID
	up.CreatedAt = cur.CreatedAt
	if up.UpdatedAt.IsZero() {
		up.UpdatedAt = time.Now().UTC()
	}
	s.logs[l.ID] = &up
	cp := up
	return &cp, nil
}

// aggregate builds a snapshot copy with links resolved in order. Caller
// holds the lock.
func (s *memEpisodes) aggregate(rec *episodeRec) *model.Episode {
	out := rec.ep
	for kind, ids := range rec.links {
		ents := make([]model.RefEntity, 0, len(ids))
		for _, id := range ids {
			if e, ok := s.entities[id]; ok {
				ents = append(ents, *e)
			}
		}
		out.SetEntities(kind, ents)
	}
	for _, id := range rec.logIDs {
		if l, ok := s.logs[id]; ok {
			out.UnlockLogs = append(out.UnlockLogs, *l)
		}
	}
	return &out
}

// --- Suggestions ---

type memSuggestions memStore

func (s *memSuggestions) Save(ctx context.Context, sg model.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sg.ID == "" {
		return fmt.Errorf("suggestion id empty: %w", model.ErrValidation)
	}
	if _, exists := s.suggs[sg.ID]; !exists {
		s.suggOrder = append(s.suggOrder, sg.ID)
	}
	s.suggs[sg.ID] = sg
	return nil
}

func (s *memSuggestions) List(ctx context.Context) ([]model.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Suggestion, 0, len(s.suggOrder))
	for _, id := range s.suggOrder {
		out = append(out, s.suggs[id])
	}
	return out, nil
}
