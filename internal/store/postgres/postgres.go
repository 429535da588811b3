// Package postgres implements store.Store on PostgreSQL through the pgx
// stdlib driver. It backs the sync-server deployment; semantics are pinned
// to the memory driver by the storetest suite.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
)

// Open connects using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens dsn, ensures the schema and returns the store.
func New(ctx context.Context, dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := Bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing connection (used by tests).
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Entities() store.Entities             { return &entities{db: s.db} }
func (s *pgStore) Episodes() store.Episodes             { return &episodes{db: s.db} }
func (s *pgStore) Suggestions() store.Suggestions       { return &suggestions{db: s.db} }
func (s *pgStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

const schemaDDL = `
CREATE TABLE IF NOT EXISTS entities (
    id             TEXT PRIMARY KEY,
    kind           TEXT NOT NULL,
    display_name   TEXT NOT NULL,
    comparison_key TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL,
    deleted        BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_entities_kind_key ON entities (kind, comparison_key);

CREATE TABLE IF NOT EXISTS episodes (
    id         TEXT PRIMARY KEY,
    date       TIMESTAMPTZ NOT NULL,
    title      TEXT NOT NULL,
    body       TEXT NOT NULL DEFAULT '',
    unlock_at  TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    deleted    BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS episode_entities (
    episode_id TEXT NOT NULL REFERENCES episodes(id),
    entity_id  TEXT NOT NULL REFERENCES entities(id),
    kind       TEXT NOT NULL,
    position   INTEGER NOT NULL,
    PRIMARY KEY (episode_id, entity_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_episode_entities_entity ON episode_entities (entity_id);

CREATE TABLE IF NOT EXISTS unlock_logs (
    id              TEXT PRIMARY KEY,
    episode_id      TEXT NOT NULL REFERENCES episodes(id),
    talked_at       TIMESTAMPTZ NOT NULL,
    media_public_at TIMESTAMPTZ,
    media_type      TEXT NOT NULL DEFAULT '',
    project_name    TEXT NOT NULL DEFAULT '',
    reaction        TEXT NOT NULL DEFAULT '',
    memo            TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    deleted         BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_unlock_logs_episode ON unlock_logs (episode_id);

CREATE TABLE IF NOT EXISTS suggestions (
    id           TEXT PRIMARY KEY,
    field        TEXT NOT NULL,
    value        TEXT NOT NULL,
    usage_count  INTEGER NOT NULL DEFAULT 0,
    last_used_at TIMESTAMPTZ,
    deleted      BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_suggestions_field ON suggestions (field);
`

// Bootstrap creates the schema when missing.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

func stamp(e *time.Time, u *time.Time) {
	now := time.Now().UTC()
	if e.IsZero() {
		*e = now
	}
	if u.IsZero() {
		*u = now
	}
}

// --- Entities ---

type entities struct{ db *sql.DB }

func (r *entities) Create(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error) {
	out := *e
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	stamp(&out.CreatedAt, &out.UpdatedAt)
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO entities (id, kind, display_name, comparison_key, created_at, updated_at, deleted, deleted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		out.ID, string(out.Kind), out.DisplayName, out.ComparisonKey,
		out.CreatedAt, out.UpdatedAt, out.Deleted, out.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

const entityCols = `id, kind, display_name, comparison_key, created_at, updated_at, deleted, deleted_at`

func (r *entities) Get(ctx context.Context, id string) (*model.RefEntity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entityCols+` FROM entities WHERE id = $1`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, model.ErrNotFound)
	}
	return e, err
}

func (r *entities) FindByKey(ctx context.Context, kind model.EntityKind, key string) (*model.RefEntity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entityCols+` FROM entities WHERE kind = $1 AND comparison_key = $2 ORDER BY deleted, created_at LIMIT 1`,
		string(kind), key)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s/%s: %w", kind, key, model.ErrNotFound)
	}
	return e, err
}

func (r *entities) List(ctx context.Context, kind model.EntityKind, includeDeleted bool) ([]*model.RefEntity, error) {
	q := `SELECT ` + entityCols + ` FROM entities WHERE kind = $1`
	if !includeDeleted {
		q += ` AND NOT deleted`
	}
	q += ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, string(kind))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.RefEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *entities) Update(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error) {
	up := *e
	if up.UpdatedAt.IsZero() {
		up.UpdatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE entities SET display_name = $1, comparison_key = $2, updated_at = $3, deleted = $4, deleted_at = $5
        WHERE id = $6`,
		up.DisplayName, up.ComparisonKey, up.UpdatedAt, up.Deleted, up.DeletedAt, up.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("entity %s: %w", up.ID, model.ErrNotFound)
	}
	return r.Get(ctx, up.ID)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanEntity(row rowScanner) (*model.RefEntity, error) {
	var e model.RefEntity
	var kind string
	if err := row.Scan(&e.ID, &kind, &e.DisplayName, &e.ComparisonKey, &e.CreatedAt, &e.UpdatedAt, &e.Deleted, &e.DeletedAt); err != nil {
		return nil, err
	}
	e.Kind = model.EntityKind(kind)
	return &e, nil
}

// --- Episodes ---

type episodes struct{ db *sql.DB }

const episodeCols = `id, date, title, body, unlock_at, created_at, updated_at, deleted, deleted_at`

func (r *episodes) Create(ctx context.Context, e *model.Episode) (*model.Episode, error) {
	out := *e
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	stamp(&out.CreatedAt, &out.UpdatedAt)
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO episodes (id, date, title, body, unlock_at, created_at, updated_at, deleted, deleted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		out.ID, out.Date, out.Title, out.Body, out.UnlockAt,
		out.CreatedAt, out.UpdatedAt, out.Deleted, out.DeletedAt)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, out.ID)
}

func (r *episodes) Get(ctx context.Context, id string) (*model.Episode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+episodeCols+` FROM episodes WHERE id = $1`, id)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *episodes) List(ctx context.Context, includeDeleted bool) ([]*model.Episode, error) {
	q := `SELECT ` + episodeCols + ` FROM episodes`
	if !includeDeleted {
		q += ` WHERE NOT deleted`
	}
	q += ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, e := range out {
		if err := r.attachRelations(ctx, e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *episodes) Update(ctx context.Context, e *model.Episode) (*model.Episode, error) {
	up := *e
	if up.UpdatedAt.IsZero() {
		up.UpdatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE episodes SET date = $1, title = $2, body = $3, unlock_at = $4, updated_at = $5, deleted = $6, deleted_at = $7
        WHERE id = $8`,
		up.Date, up.Title, up.Body, up.UnlockAt, up.UpdatedAt, up.Deleted, up.DeletedAt, up.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("episode %s: %w", up.ID, model.ErrNotFound)
	}
	return r.Get(ctx, up.ID)
}

func (r *episodes) ReplaceLinks(ctx context.Context, episodeID string, kind model.EntityKind, entityIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM episode_entities WHERE episode_id = $1 AND kind = $2`, episodeID, string(kind)); err != nil {
		return err
	}
	for i, id := range entityIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episode_entities (episode_id, entity_id, kind, position) VALUES ($1,$2,$3,$4)`,
			episodeID, id, string(kind), i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *episodes) AddLog(ctx context.Context, l *model.UnlockLog) (*model.UnlockLog, error) {
	out := *l
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	stamp(&out.CreatedAt, &out.UpdatedAt)
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO unlock_logs (id, episode_id, talked_at, media_public_at, media_type, project_name, reaction, memo, created_at, updated_at, deleted, deleted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		out.ID, out.EpisodeID, out.TalkedAt, out.MediaPublicAt, out.MediaType, out.ProjectName, out.Reaction, out.Memo,
		out.CreatedAt, out.UpdatedAt, out.Deleted, out.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *episodes) UpdateLog(ctx context.Context, l *model.UnlockLog) (*model.UnlockLog, error) {
	up := *l
	if up.UpdatedAt.IsZero() {
		up.UpdatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE unlock_logs SET talked_at = $1, media_public_at = $2, media_type = $3, project_name = $4, reaction = $5, memo = $6, updated_at = $7, deleted = $8, deleted_at = $9
        WHERE id = $10`,
		up.TalkedAt, up.MediaPublicAt, up.MediaType, up.ProjectName, up.Reaction, up.Memo,
		up.UpdatedAt, up.Deleted, up.DeletedAt, up.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("unlock log %s: %w", up.ID, model.ErrNotFound)
	}
	return &up, nil
}

func scanEpisode(row rowScanner) (*model.Episode, error) {
	var e model.Episode
	if err := row.Scan(&e.ID, &e.Date, &e.Title, &e.Body, &e.UnlockAt, &e.CreatedAt, &e.UpdatedAt, &e.Deleted, &e.DeletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *episodes) attachRelations(ctx context.Context, e *model.Episode) error {
	rows, err := r.db.QueryContext(ctx, `
        SELECT en.id, en.kind, en.display_name, en.comparison_key, en.created_at, en.updated_at, en.deleted, en.deleted_at, ee.kind
        FROM episode_entities ee
        JOIN entities en ON en.id = ee.entity_id
        WHERE ee.episode_id = $1
        ORDER BY ee.kind, ee.position`, e.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ent model.RefEntity
		var kind, linkKind string
		if err := rows.Scan(&ent.ID, &kind, &ent.DisplayName, &ent.ComparisonKey, &ent.CreatedAt, &ent.UpdatedAt, &ent.Deleted, &ent.DeletedAt, &linkKind); err != nil {
			return err
		}
		ent.Kind = model.EntityKind(kind)
		k := model.EntityKind(linkKind)
		e.SetEntities(k, append(e.Entities(k), ent))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	logRows, err := r.db.QueryContext(ctx, `
        SELECT id, episode_id, talked_at, media_public_at, media_type, project_name, reaction, memo, created_at, updated_at, deleted, deleted_at
        FROM unlock_logs WHERE episode_id = $1 ORDER BY created_at, id`, e.ID)
	if err != nil {
		return err
	}
	defer func() { _ = logRows.Close() }()

	for logRows.Next() {
		var l model.UnlockLog
		if err := logRows.Scan(&l.ID, &l.EpisodeID, &l.TalkedAt, &l.MediaPublicAt, &l.MediaType, &l.ProjectName, &l.Reaction, &l.Memo, &l.CreatedAt, &l.UpdatedAt, &l.Deleted, &l.DeletedAt); err != nil {
			return err
		}
		e.UnlockLogs = append(e.UnlockLogs, l)
	}
	return logRows.Err()
}

// --- Suggestions ---

type suggestions struct{ db *sql.DB }

func (r *suggestions) Save(ctx context.Context, s model.Suggestion) error {
	if s.ID == "" {
		return fmt.Errorf("suggestion id empty: %w", model.ErrValidation)
	}
	var last *time.Time
	if !s.LastUsedAt.IsZero() {
		last = &s.LastUsedAt
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO suggestions (id, field, value, usage_count, last_used_at, deleted)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET
            field = EXCLUDED.field,
            value = EXCLUDED.value,
            usage_count = EXCLUDED.usage_count,
            last_used_at = EXCLUDED.last_used_at,
            deleted = EXCLUDED.deleted`,
		s.ID, s.Field, s.Value, s.UsageCount, last, s.Deleted)
	return err
}

func (r *suggestions) List(ctx context.Context) ([]model.Suggestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, field, value, usage_count, last_used_at, deleted FROM suggestions ORDER BY field, value`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Suggestion
	for rows.Next() {
		var s model.Suggestion
		var last *time.Time
		if err := rows.Scan(&s.ID, &s.Field, &s.Value, &s.UsageCount, &last, &s.Deleted); err != nil {
			return nil, err
		}
		if last != nil {
			s.LastUsedAt = *last
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
