package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 1

// schemaDDL contains the CREATE TABLE statements for the initial schema.
// Overwrite sets are stored as JSON text per entity row; everything else
// is scalar columns. local_id is sequential per snapshot per entity
// class, so ORDER BY local_id reproduces capture order.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
	id              TEXT PRIMARY KEY,
	source_guild_id TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_roles (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	local_id    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	color       INTEGER NOT NULL,
	permissions INTEGER NOT NULL,
	hoist       INTEGER NOT NULL,
	mentionable INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, local_id)
);

CREATE TABLE IF NOT EXISTS snapshot_categories (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	local_id    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	overwrites  TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, local_id)
);

CREATE TABLE IF NOT EXISTS snapshot_channels (
	snapshot_id     TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	local_id        INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	position        INTEGER NOT NULL,
	parent_local_id INTEGER,
	topic           TEXT NOT NULL DEFAULT '',
	nsfw            INTEGER NOT NULL DEFAULT 0,
	slowmode        INTEGER NOT NULL DEFAULT 0,
	bitrate         INTEGER NOT NULL DEFAULT 0,
	user_limit      INTEGER NOT NULL DEFAULT 0,
	overwrites      TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, local_id)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_source_guild ON snapshots(source_guild_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they
// migrate TO. For example, migrations[2] migrates from version 1 to
// version 2. Empty until the schema changes for the first time.
var migrations = map[int]func(tx *sql.Tx) error{}

// Migrate checks the current schema version and applies any pending migrations
// sequentially. It is a no-op when already at the latest version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
