// Package sqlite implements store.Store on a local SQLite file via the
// cgo-free modernc driver. This is the at-rest format of the single-user
// deployment.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
)

// Pragmas applied through the DSN so every pooled connection gets them.
// WAL keeps readers unblocked during episode writes; foreign keys back
// the episode_entities and unlock_logs references.
var connPragmas = []string{"journal_mode(WAL)", "foreign_keys(ON)"}

// Open opens (or creates) the database file, creating parent directories
// as needed, and verifies connectivity.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	var dsn strings.Builder
	dsn.WriteString("file:")
	dsn.WriteString(path)
	for i, p := range connPragmas {
		if i == 0 {
			dsn.WriteByte('?')
		} else {
			dsn.WriteByte('&')
		}
		dsn.WriteString("_pragma=")
		dsn.WriteString(p)
	}
	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens the database at path, ensures the schema and returns the
// store.
func New(ctx context.Context, path string) (store.Store, error) {
	db, err := Open(path)
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
func NewWithDB(db *sql.DB) store.Store { return &sqlStore{db: db} }

type sqlStore struct{ db *sql.DB }

func (s *sqlStore) Entities() store.Entities             { return &entities{db: s.db} }
func (s *sqlStore) Episodes() store.Episodes             { return &episodes{db: s.db} }
func (s *sqlStore) Suggestions() store.Suggestions       { return &suggestions{db: s.db} }
func (s *sqlStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Entities ---

type entities struct{ db *sql.DB }

func (r *entities) Create(ctx context.Context, e *model.RefEntity) (*model.RefEntity, error) {
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
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO entities (id, kind, display_name, comparison_key, created_at, updated_at, deleted, deleted_at)
        VALUES (?,?,?,?,?,?,?,?)`,
		out.ID, string(out.Kind), out.DisplayName, out.ComparisonKey,
		fmtTime(out.CreatedAt), fmtTime(out.UpdatedAt), boolInt(out.Deleted), fmtTimePtr(out.DeletedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

const entityCols = `id, kind, display_name, comparison_key, created_at, updated_at, deleted, deleted_at`

func (r *entities) Get(ctx context.Context, id string) (*model.RefEntity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entityCols+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, model.ErrNotFound)
	}
	return e, err
}

func (r *entities) FindByKey(ctx context.Context, kind model.EntityKind, key string) (*model.RefEntity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entityCols+` FROM entities WHERE kind = ? AND comparison_key = ? ORDER BY deleted, created_at LIMIT 1`,
		string(kind), key)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s/%s: %w", kind, key, model.ErrNotFound)
	}
	return e, err
}

func (r *entities) List(ctx context.Context, kind model.EntityKind, includeDeleted bool) ([]*model.RefEntity, error) {
	q := `SELECT ` + entityCols + ` FROM entities WHERE kind = ?`
	if !includeDeleted {
		q += ` AND deleted = 0`
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
        UPDATE entities SET display_name = ?, comparison_key = ?, updated_at = ?, deleted = ?, deleted_at = ?
        WHERE id = ?`,
		up.DisplayName, up.ComparisonKey, fmtTime(up.UpdatedAt), boolInt(up.Deleted), fmtTimePtr(up.DeletedAt), up.ID)
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
	var kind, created, updated string
	var deleted int
	var deletedAt sql.NullString
	if err := row.Scan(&e.ID, &kind, &e.DisplayName, &e.ComparisonKey, &created, &updated, &deleted, &deletedAt); err != nil {
		return nil, err
	}
	e.Kind = model.EntityKind(kind)
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	e.Deleted = deleted != 0
	if e.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Episodes ---

type episodes struct{ db *sql.DB }

func (r *episodes) Create(ctx context.Context, e *model.Episode) (*model.Episode, error) {
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
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO episodes (id, date, title, body, unlock_at, created_at, updated_at, deleted, deleted_at)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		out.ID, fmtTime(out.Date), out.Title, out.Body, fmtTimePtr(out.UnlockAt),
		fmtTime(out.CreatedAt), fmtTime(out.UpdatedAt), boolInt(out.Deleted), fmtTimePtr(out.DeletedAt))
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, out.ID)
}

const episodeCols = `id, date, title, body, unlock_at, created_at, updated_at, deleted, deleted_at`

func (r *episodes) Get(ctx context.Context, id string) (*model.Episode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+episodeCols+` FROM episodes WHERE id = ?`, id)
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
		q += ` WHERE deleted = 0`
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
        UPDATE episodes SET date = ?, title = ?, body = ?, unlock_at = ?, updated_at = ?, deleted = ?, deleted_at = ?
        WHERE id = ?`,
		fmtTime(up.Date), up.Title, up.Body, fmtTimePtr(up.UnlockAt),
		fmtTime(up.UpdatedAt), boolInt(up.Deleted), fmtTimePtr(up.DeletedAt), up.ID)
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
		`DELETE FROM episode_entities WHERE episode_id = ? AND kind = ?`, episodeID, string(kind)); err != nil {
		return err
	}
	for i, id := range entityIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episode_entities (episode_id, entity_id, kind, position) VALUES (?,?,?,?)`,
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
	now := time.Now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO unlock_logs (id, episode_id, talked_at, media_public_at, media_type, project_name, reaction, memo, created_at, updated_at, deleted, deleted_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		out.ID, out.EpisodeID, fmtTime(out.TalkedAt), fmtTimePtr(out.MediaPublicAt),
		out.MediaType, out.ProjectName, out.Reaction, out.Memo,
		fmtTime(out.CreatedAt), fmtTime(out.UpdatedAt), boolInt(out.Deleted), fmtTimePtr(out.DeletedAt))
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
        UPDATE unlock_logs SET talked_at = ?, media_public_at = ?, media_type = ?, project_name = ?, reaction = ?, memo = ?, updated_at = ?, deleted = ?, deleted_at = ?
        WHERE id = ?`,
		fmtTime(up.TalkedAt), fmtTimePtr(up.MediaPublicAt), up.MediaType, up.ProjectName, up.Reaction, up.Memo,
		fmtTime(up.UpdatedAt), boolInt(up.Deleted), fmtTimePtr(up.DeletedAt), up.ID)
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
	var date, created, updated string
	var unlockAt, deletedAt sql.NullString
	var deleted int
	if err := row.Scan(&e.ID, &date, &e.Title, &e.Body, &unlockAt, &created, &updated, &deleted, &deletedAt); err != nil {
		return nil, err
	}
	var err error
	if e.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if e.UnlockAt, err = parseTimePtr(unlockAt); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	e.Deleted = deleted != 0
	if e.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// attachRelations loads entity links (snapshot copies, link order) and
// owned unlock logs.
func (r *episodes) attachRelations(ctx context.Context, e *model.Episode) error {
	rows, err := r.db.QueryContext(ctx, `
        SELECT en.id, en.kind, en.display_name, en.comparison_key, en.created_at, en.updated_at, en.deleted, en.deleted_at, ee.kind
        FROM episode_entities ee
        JOIN entities en ON en.id = ee.entity_id
        WHERE ee.episode_id = ?
        ORDER BY ee.kind, ee.position`, e.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ent model.RefEntity
		var kind, linkKind, created, updated string
		var deleted int
		var deletedAt sql.NullString
		if err := rows.Scan(&ent.ID, &kind, &ent.DisplayName, &ent.ComparisonKey, &created, &updated, &deleted, &deletedAt, &linkKind); err != nil {
			return err
		}
		ent.Kind = model.EntityKind(kind)
		if ent.CreatedAt, err = parseTime(created); err != nil {
			return err
		}
		if ent.UpdatedAt, err = parseTime(updated); err != nil {
			return err
		}
		ent.Deleted = deleted != 0
		if ent.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
			return err
		}
		k := model.EntityKind(linkKind)
		e.SetEntities(k, append(e.Entities(k), ent))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	logRows, err := r.db.QueryContext(ctx, `
        SELECT id, episode_id, talked_at, media_public_at, media_type, project_name, reaction, memo, created_at, updated_at, deleted, deleted_at
        FROM unlock_logs WHERE episode_id = ? ORDER BY created_at, id`, e.ID)
	if err != nil {
		return err
	}
	defer func() { _ = logRows.Close() }()

	for logRows.Next() {
		var l model.UnlockLog
		var talked, created, updated string
		var mediaPublicAt, deletedAt sql.NullString
		var deleted int
		if err := logRows.Scan(&l.ID, &l.EpisodeID, &talked, &mediaPublicAt, &l.MediaType, &l.ProjectName, &l.Reaction, &l.Memo, &created, &updated, &deleted, &deletedAt); err != nil {
			return err
		}
		if l.TalkedAt, err = parseTime(talked); err != nil {
			return err
		}
		if l.MediaPublicAt, err = parseTimePtr(mediaPublicAt); err != nil {
			return err
		}
		if l.CreatedAt, err = parseTime(created); err != nil {
			return err
		}
		if l.UpdatedAt, err = parseTime(updated); err != nil {
			return err
		}
		l.Deleted = deleted != 0
		if l.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
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
	var last any
	if !s.LastUsedAt.IsZero() {
		last = fmtTime(s.LastUsedAt)
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO suggestions (id, field, value, usage_count, last_used_at, deleted)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT (id) DO UPDATE SET
            field = excluded.field,
            value = excluded.value,
            usage_count = excluded.usage_count,
            last_used_at = excluded.last_used_at,
            deleted = excluded.deleted`,
		s.ID, s.Field, s.Value, s.UsageCount, last, boolInt(s.Deleted))
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
		var last sql.NullString
		var deleted int
		if err := rows.Scan(&s.ID, &s.Field, &s.Value, &s.UsageCount, &last, &deleted); err != nil {
			return nil, err
		}
		if last.Valid {
			if s.LastUsedAt, err = parseTime(last.String); err != nil {
				return nil, err
			}
		}
		s.Deleted = deleted != 0
		out = append(out, s)
	}
	return out, rows.Err()
}
