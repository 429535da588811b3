// Package store defines the persistence boundary of the core. The engine
// packages treat it as a mapping from ids to records plus simple lookup;
// implementations live under store/<driver>/ (memory, sqlite, postgres).
package store

import (
	"context"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

// Store exposes the persistence operations required by the services.
type Store interface {
	Entities() Entities
	Episodes() Episodes
	Suggestions() Suggestions

	// HealthPing verifies the backing collection is reachable.
	HealthPing(ctx context.Context) error
}

// Entities persists the shared reference-entity pools. Soft-deleted rows
// stay addressable: FindByKey and List(includeDeleted=true) see them.
type Entities interface {
	Create(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error)
	Get(ctx context.Context, id string) (*model.RefEntity, error)
	// FindByKey looks up by (kind, comparisonKey) across active and
	// soft-deleted entities, preferring an active match;
	// model.ErrNotFound when absent.
	FindByKey(ctx context.Context, kind model.EntityKind, key string) (*model.RefEntity, error)
	List(ctx context.Context, kind model.EntityKind, includeDeleted bool) ([]*model.RefEntity, error)
	Update(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error)
}

// Episodes persists episode aggregates. Get and List return full
// aggregates: entity links resolved to current snapshots in link order,
// owned unlock logs attached. Create and Update cover scalar fields and
// soft-delete flags only; links and logs have their own operations.
type Episodes interface {
	Create(ctx context.Context, e *model.Episode) (*model.Episode, error)
	Get(ctx context.Context, id string) (*model.Episode, error)
	List(ctx context.Context, includeDeleted bool) ([]*model.Episode, error)
	Update(ctx context.Context, e *model.Episode) (*model.Episode, error)
	// ReplaceLinks rewrites the episode's links of one kind, preserving
	// the given order.
	ReplaceLinks(ctx context.Context, episodeID string, kind model.EntityKind, entityIDs []string) error
	AddLog(ctx context.Context, l *model.UnlockLog) (*model.UnlockLog, error)
	UpdateLog(ctx context.Context, l *model.UnlockLog) (*model.UnlockLog, error)
}

// Suggestions persists the autocomplete ledger between runs.
type Suggestions interface {
	// Save upserts by id.
	Save(ctx context.Context, s model.Suggestion) error
	List(ctx context.Context) ([]model.Suggestion, error)
}
