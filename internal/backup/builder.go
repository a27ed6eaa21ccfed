// Package backup holds the snapshot builder and the restore engine.
// Both issue their remote calls through the ratelimit.Coordinator and
// depend on the guild.API capability, never on a concrete client.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildkeep/guildkeep/internal/guild"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/ratelimit"
)

// Builder captures a live guild's structure into a Snapshot.
type Builder struct {
	API     guild.API
	Limiter *ratelimit.Coordinator
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// MaxAttempts bounds fetch retries on transient failures.
	// Zero means defaultMaxAttempts.
	MaxAttempts int
}

// Build enumerates the source guild in a single pass and produces a
// complete snapshot, or fails wholesale: an enumeration error returns
// nothing, so no partial snapshot can ever reach the store. The
// returned snapshot has no ID; the caller assigns one when persisting.
//
// Managed (integration-owned) roles are excluded — they cannot be
// recreated — and so is the implicit base role, which is represented
// by the everyone sentinel in overwrites instead of a RoleRecord.
// Overwrites whose target was excluded, and member-targeted
// overwrites, are dropped.
func (b *Builder) Build(ctx context.Context, guildID string) (*model.Snapshot, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// The fetch goes through the same coordinator loop as creates:
	// rate-limit hints park the bucket and retry without consuming an
	// attempt, transient failures back off up to the bound.
	var structure *guild.Structure
	err := callWithRetry(ctx, b.Limiter, guildID, ratelimit.ActionFetch, b.MaxAttempts, func(ctx context.Context) error {
		var err error
		structure, err = b.API.FetchGuildStructure(ctx, guildID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating guild %s: %w", guildID, err)
	}

	snap := &model.Snapshot{
		SourceGuildID: guildID,
		CreatedAt:     time.Now().UTC(),
	}

	// Roles first: overwrite targets on categories and channels
	// resolve against the role local IDs assigned here.
	roleLocal := make(map[string]int)
	for _, role := range structure.Roles {
		if role.Managed || role.ID == structure.EveryoneRoleID {
			continue
		}
		localID := len(snap.Roles)
		roleLocal[role.ID] = localID
		snap.Roles = append(snap.Roles, model.RoleRecord{
			LocalID:     localID,
			Name:        role.Name,
			Color:       role.Color,
			Permissions: role.Permissions,
			Hoist:       role.Hoist,
			Mentionable: role.Mentionable,
			Position:    role.Position,
		})
	}

	categoryLocal := make(map[string]int)
	for _, channel := range structure.Channels {
		if channel.Type != guild.ChannelTypeCategory {
			continue
		}
		localID := len(snap.Categories)
		categoryLocal[channel.ID] = localID
		snap.Categories = append(snap.Categories, model.CategoryRecord{
			LocalID:    localID,
			Name:       channel.Name,
			Position:   channel.Position,
			Overwrites: convertOverwrites(channel.Overwrites, structure.EveryoneRoleID, roleLocal),
		})
	}

	for _, channel := range structure.Channels {
		if channel.Type == guild.ChannelTypeCategory {
			continue
		}
		record := model.ChannelRecord{
			LocalID:    len(snap.Channels),
			Kind:       kindFromWire(channel.Type),
			Name:       channel.Name,
			Position:   channel.Position,
			Overwrites: convertOverwrites(channel.Overwrites, structure.EveryoneRoleID, roleLocal),
		}
		if channel.ParentID != "" {
			if localID, ok := categoryLocal[channel.ParentID]; ok {
				parent := localID
				record.ParentLocalID = &parent
			}
		}
		switch record.Kind {
		case model.KindVoice:
			record.Bitrate = channel.Bitrate
			record.UserLimit = channel.UserLimit
		default:
			record.Topic = channel.Topic
			record.NSFW = channel.NSFW
			record.SlowmodeSeconds = channel.RateLimitPerUser
		}
		snap.Channels = append(snap.Channels, record)
	}

	logger.Info("built snapshot",
		"guild_id", guildID,
		"roles", len(snap.Roles),
		"categories", len(snap.Categories),
		"channels", len(snap.Channels),
	)

	return snap, nil
}

// kindFromWire collapses remote channel type codes into the snapshot's
// kind enum. Everything that is neither plain text nor plain voice
// (announcement, stage, forum, ...) is KindOther and is recreated as a
// text channel on restore.
func kindFromWire(wireType int) model.ChannelKind {
	switch wireType {
	case guild.ChannelTypeText:
		return model.KindText
	case guild.ChannelTypeVoice:
		return model.KindVoice
	default:
		return model.KindOther
	}
}

// convertOverwrites translates wire overwrites into snapshot records.
// The base role becomes the everyone sentinel; targets that did not
// make it into the snapshot (managed roles, member targets) are
// dropped.
func convertOverwrites(overwrites []guild.Overwrite, everyoneRoleID string, roleLocal map[string]int) []model.PermissionOverwrite {
	var records []model.PermissionOverwrite
	for _, ow := range overwrites {
		if ow.TargetType != guild.OverwriteTargetRole {
			continue
		}
		if ow.TargetID == everyoneRoleID {
			records = append(records, model.PermissionOverwrite{
				TargetKind: model.TargetEveryone,
				Allow:      ow.Allow,
				Deny:       ow.Deny,
			})
			continue
		}
		localID, ok := roleLocal[ow.TargetID]
		if !ok {
			continue
		}
		target := localID
		records = append(records, model.PermissionOverwrite{
			TargetKind:    model.TargetRole,
			TargetLocalID: &target,
			Allow:         ow.Allow,
			Deny:          ow.Deny,
		})
	}
	return records
}
