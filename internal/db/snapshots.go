package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/guildkeep/guildkeep/internal/model"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when writing a snapshot whose ID is already taken.
var ErrExists = errors.New("already exists")

// PutSnapshot persists a complete snapshot in one transaction. Either
// the whole snapshot lands or nothing does; a duplicate ID fails with
// ErrExists before any rows are written.
func PutSnapshot(db *sql.DB, snap *model.Snapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(`SELECT id FROM snapshots WHERE id = ?`, snap.ID).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("snapshot %q: %w", snap.ID, ErrExists)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking snapshot id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO snapshots (id, source_guild_id, created_at) VALUES (?, ?, ?)`,
		snap.ID,
		snap.SourceGuildID,
		snap.CreatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	for _, r := range snap.Roles {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_roles (snapshot_id, local_id, name, color, permissions, hoist, mentionable, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, r.LocalID, r.Name, r.Color, int64(r.Permissions),
			boolToInt(r.Hoist), boolToInt(r.Mentionable), r.Position,
		); err != nil {
			return fmt.Errorf("inserting role %d: %w", r.LocalID, err)
		}
	}

	for _, c := range snap.Categories {
		overwrites, err := marshalOverwrites(c.Overwrites)
		if err != nil {
			return fmt.Errorf("encoding category %d overwrites: %w", c.LocalID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO snapshot_categories (snapshot_id, local_id, name, position, overwrites)
			 VALUES (?, ?, ?, ?, ?)`,
			snap.ID, c.LocalID, c.Name, c.Position, overwrites,
		); err != nil {
			return fmt.Errorf("inserting category %d: %w", c.LocalID, err)
		}
	}

	for _, ch := range snap.Channels {
		overwrites, err := marshalOverwrites(ch.Overwrites)
		if err != nil {
			return fmt.Errorf("encoding channel %d overwrites: %w", ch.LocalID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO snapshot_channels (snapshot_id, local_id, kind, name, position, parent_local_id, topic, nsfw, slowmode, bitrate, user_limit, overwrites)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, ch.LocalID, string(ch.Kind), ch.Name, ch.Position,
			ch.ParentLocalID, ch.Topic, boolToInt(ch.NSFW),
			ch.SlowmodeSeconds, ch.Bitrate, ch.UserLimit, overwrites,
		); err != nil {
			return fmt.Errorf("inserting channel %d: %w", ch.LocalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetSnapshot retrieves a snapshot by ID, entities in capture order.
func GetSnapshot(db *sql.DB, id string) (*model.Snapshot, error) {
	snap := &model.Snapshot{ID: id}

	var createdAt string
	err := db.QueryRow(
		`SELECT source_guild_id, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.SourceGuildID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}

	rows, err := db.Query(
		`SELECT local_id, name, color, permissions, hoist, mentionable, position
		 FROM snapshot_roles WHERE snapshot_id = ? ORDER BY local_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r model.RoleRecord
		var perms int64
		var hoist, mentionable int
		if err := rows.Scan(&r.LocalID, &r.Name, &r.Color, &perms, &hoist, &mentionable, &r.Position); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		r.Permissions = uint64(perms)
		r.Hoist = hoist != 0
		r.Mentionable = mentionable != 0
		snap.Roles = append(snap.Roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	catRows, err := db.Query(
		`SELECT local_id, name, position, overwrites
		 FROM snapshot_categories WHERE snapshot_id = ? ORDER BY local_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var c model.CategoryRecord
		var overwrites string
		if err := catRows.Scan(&c.LocalID, &c.Name, &c.Position, &overwrites); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		if c.Overwrites, err = unmarshalOverwrites(overwrites); err != nil {
			return nil, fmt.Errorf("decoding category %d overwrites: %w", c.LocalID, err)
		}
		snap.Categories = append(snap.Categories, c)
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	chRows, err := db.Query(
		`SELECT local_id, kind, name, position, parent_local_id, topic, nsfw, slowmode, bitrate, user_limit, overwrites
		 FROM snapshot_channels WHERE snapshot_id = ? ORDER BY local_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var ch model.ChannelRecord
		var kind, overwrites string
		var parent sql.NullInt64
		var nsfw int
		if err := chRows.Scan(&ch.LocalID, &kind, &ch.Name, &ch.Position, &parent,
			&ch.Topic, &nsfw, &ch.SlowmodeSeconds, &ch.Bitrate, &ch.UserLimit, &overwrites); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		ch.Kind = model.ChannelKind(kind)
		ch.NSFW = nsfw != 0
		if parent.Valid {
			p := int(parent.Int64)
			ch.ParentLocalID = &p
		}
		if ch.Overwrites, err = unmarshalOverwrites(overwrites); err != nil {
			return nil, fmt.Errorf("decoding channel %d overwrites: %w", ch.LocalID, err)
		}
		snap.Channels = append(snap.Channels, ch)
	}
	if err := chRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channels: %w", err)
	}

	return snap, nil
}

// DeleteSnapshot removes a snapshot and, through the cascading foreign
// keys, all of its entity rows.
func DeleteSnapshot(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("snapshot %q: %w", id, ErrNotFound)
	}
	return nil
}

// SnapshotMeta is a store listing entry: identity plus entity counts,
// without the entity payloads.
type SnapshotMeta struct {
	ID            string    `json:"id"`
	SourceGuildID string    `json:"source_guild_id"`
	CreatedAt     time.Time `json:"created_at"`
	Roles         int       `json:"roles"`
	Categories    int       `json:"categories"`
	Channels      int       `json:"channels"`
}

// ListSnapshots returns metadata for stored snapshots, newest first.
// When sourceGuildID is non-empty, only snapshots taken from that guild
// are returned.
func ListSnapshots(db *sql.DB, sourceGuildID string) ([]SnapshotMeta, error) {
	query := `
		SELECT s.id, s.source_guild_id, s.created_at,
			(SELECT COUNT(*) FROM snapshot_roles r WHERE r.snapshot_id = s.id),
			(SELECT COUNT(*) FROM snapshot_categories c WHERE c.snapshot_id = s.id),
			(SELECT COUNT(*) FROM snapshot_channels ch WHERE ch.snapshot_id = s.id)
		FROM snapshots s`
	args := []any{}
	if sourceGuildID != "" {
		query += ` WHERE s.source_guild_id = ?`
		args = append(args, sourceGuildID)
	}
	query += ` ORDER BY s.created_at DESC, s.id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var metas []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SourceGuildID, &createdAt, &m.Roles, &m.Categories, &m.Channels); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}

	return metas, nil
}

// SnapshotIDTaken reports whether an ID already exists in the store.
// Used as the collision check during ID generation.
func SnapshotIDTaken(db *sql.DB, id string) bool {
	var found string
	err := db.QueryRow(`SELECT id FROM snapshots WHERE id = ?`, id).Scan(&found)
	return err == nil
}

func marshalOverwrites(overwrites []model.PermissionOverwrite) (string, error) {
	if overwrites == nil {
		overwrites = []model.PermissionOverwrite{}
	}
	data, err := json.Marshal(overwrites)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalOverwrites(data string) ([]model.PermissionOverwrite, error) {
	var overwrites []model.PermissionOverwrite
	if err := json.Unmarshal([]byte(data), &overwrites); err != nil {
		return nil, err
	}
	if len(overwrites) == 0 {
		return nil, nil
	}
	return overwrites, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
