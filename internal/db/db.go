// Package db is the snapshot store: SQLite-backed keyed persistence
// for model.Snapshot values. Snapshots are written wholesale in one
// transaction, read back in capture order, and deleted wholesale;
// there are no partial updates.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens or creates the SQLite database at the given path. WAL
// mode and foreign keys are enabled; the foreign keys carry the
// ON DELETE CASCADE that makes snapshot deletion wholesale.
func Open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite is single-writer; one connection avoids lock contention.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	return conn, nil
}
