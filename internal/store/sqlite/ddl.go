package sqlite

import (
	"context"
	"database/sql"
)

// Schema for the local single-user database. Times are stored as RFC3339
// text; booleans as 0/1.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS entities (
    id             TEXT PRIMARY KEY,
    kind           TEXT NOT NULL,
    display_name   TEXT NOT NULL,
    comparison_key TEXT NOT NULL,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL,
    deleted        INTEGER NOT NULL DEFAULT 0,
    deleted_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_entities_kind_key ON entities (kind, comparison_key);

CREATE TABLE IF NOT EXISTS episodes (
    id         TEXT PRIMARY KEY,
    date       TEXT NOT NULL,
    title      TEXT NOT NULL,
    body       TEXT NOT NULL DEFAULT '',
    unlock_at  TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    deleted    INTEGER NOT NULL DEFAULT 0,
    deleted_at TEXT
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
    talked_at       TEXT NOT NULL,
    media_public_at TEXT,
    media_type      TEXT NOT NULL DEFAULT '',
    project_name    TEXT NOT NULL DEFAULT '',
    reaction        TEXT NOT NULL DEFAULT '',
    memo            TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,
    deleted         INTEGER NOT NULL DEFAULT 0,
    deleted_at      TEXT
);
CREATE INDEX IF NOT EXISTS idx_unlock_logs_episode ON unlock_logs (episode_id);

CREATE TABLE IF NOT EXISTS suggestions (
    id           TEXT PRIMARY KEY,
    field        TEXT NOT NULL,
    value        TEXT NOT NULL,
    usage_count  INTEGER NOT NULL DEFAULT 0,
    last_used_at TEXT,
    deleted      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_suggestions_field ON suggestions (field);
`

// Bootstrap creates the schema when missing.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}
