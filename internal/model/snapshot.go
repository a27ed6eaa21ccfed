package model

import (
	"fmt"
	"time"
)

// ChannelKind classifies a channel record. Anything the remote API
// reports that is neither a plain text nor a plain voice channel is
// recorded as KindOther and recreated as a text channel on restore.
type ChannelKind string

const (
	KindText  ChannelKind = "text"
	KindVoice ChannelKind = "voice"
	KindOther ChannelKind = "other"
)

var validChannelKinds = []ChannelKind{KindText, KindVoice, KindOther}

// ValidateChannelKind returns an error if k is not a recognized kind.
func ValidateChannelKind(k ChannelKind) error {
	for _, v := range validChannelKinds {
		if k == v {
			return nil
		}
	}
	return fmt.Errorf("invalid channel kind %q: must be one of %v", k, validChannelKinds)
}

// OverwriteTarget identifies what a permission overwrite applies to.
type OverwriteTarget string

const (
	// TargetRole points at a RoleRecord in the same snapshot.
	TargetRole OverwriteTarget = "role"
	// TargetEveryone is the sentinel for the guild's implicit base
	// role. It carries no local ID; on restore it maps to the
	// destination guild's own base role.
	TargetEveryone OverwriteTarget = "everyone"
)

// PermissionOverwrite is a per-role (or per-everyone) allow/deny
// adjustment scoped to a category or channel. TargetLocalID is nil
// exactly when TargetKind is TargetEveryone.
type PermissionOverwrite struct {
	TargetKind    OverwriteTarget `json:"target_kind"`
	TargetLocalID *int            `json:"target_local_id,omitempty"`
	Allow         uint64          `json:"allow"`
	Deny          uint64          `json:"deny"`
}

// RoleRecord is a captured guild role. LocalID is snapshot-scoped and
// sequential in enumeration order; Position is the source guild's rank
// (lower = higher precedence).
type RoleRecord struct {
	LocalID     int    `json:"local_id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Permissions uint64 `json:"permissions"`
	Hoist       bool   `json:"hoist"`
	Mentionable bool   `json:"mentionable"`
	Position    int    `json:"position"`
}

// CategoryRecord is a captured channel category.
type CategoryRecord struct {
	LocalID    int                   `json:"local_id"`
	Name       string                `json:"name"`
	Position   int                   `json:"position"`
	Overwrites []PermissionOverwrite `json:"overwrites"`
}

// ChannelRecord is a captured channel. ParentLocalID, when set, must
// reference a CategoryRecord in the same snapshot. Topic, NSFW, and
// SlowmodeSeconds apply to text channels; Bitrate and UserLimit to
// voice channels.
type ChannelRecord struct {
	LocalID         int                   `json:"local_id"`
	Kind            ChannelKind           `json:"kind"`
	Name            string                `json:"name"`
	Position        int                   `json:"position"`
	ParentLocalID   *int                  `json:"parent_local_id,omitempty"`
	Topic           string                `json:"topic,omitempty"`
	NSFW            bool                  `json:"nsfw,omitempty"`
	SlowmodeSeconds int                   `json:"slowmode_seconds,omitempty"`
	Bitrate         int                   `json:"bitrate,omitempty"`
	UserLimit       int                   `json:"user_limit,omitempty"`
	Overwrites      []PermissionOverwrite `json:"overwrites"`
}

// Snapshot is the immutable, portable record of a guild's structural
// configuration at capture time. The three entity sequences are
// ordered; LocalIDs within each class are unique and assigned in
// enumeration order, so local ID order reproduces capture order.
type Snapshot struct {
	ID            string           `json:"id"`
	SourceGuildID string           `json:"source_guild_id"`
	CreatedAt     time.Time        `json:"created_at"`
	Roles         []RoleRecord     `json:"roles"`
	Categories    []CategoryRecord `json:"categories"`
	Channels      []ChannelRecord  `json:"channels"`
}

// ExportData is the top-level structure of a portable snapshot file.
type ExportData struct {
	Version    int       `json:"version"`
	ExportedAt string    `json:"exported_at"`
	Snapshot   *Snapshot `json:"snapshot"`
}

// ExportVersion is the current portable file format version.
const ExportVersion = 1
