package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guildkeep/guildkeep/internal/guild"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/ratelimit"
)

// defaultMaxAttempts bounds retries of a single create on transient
// failures. Rate-limit parks do not consume attempts.
const defaultMaxAttempts = 3

// Engine replays a snapshot into a destination guild.
type Engine struct {
	API     guild.API
	Limiter *ratelimit.Coordinator
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// MaxAttempts bounds per-entity retries on transient failures.
	// Zero means defaultMaxAttempts.
	MaxAttempts int
}

// Report is the outcome of one restore. Warnings are per-entity
// failures the restore survived: exhausted retries and entity-count
// ceilings. A report with warnings still means the restore ran to
// completion over every plannable entity.
type Report struct {
	SnapshotID  string `json:"snapshot_id"`
	DestGuildID string `json:"dest_guild_id"`

	RolesCreated      int `json:"roles_created"`
	RolesSkipped      int `json:"roles_skipped"`
	CategoriesCreated int `json:"categories_created"`
	CategoriesSkipped int `json:"categories_skipped"`
	ChannelsCreated   int `json:"channels_created"`
	ChannelsSkipped   int `json:"channels_skipped"`

	Warnings []string `json:"warnings,omitempty"`
}

// Created returns the total count of entities created.
func (r *Report) Created() int {
	return r.RolesCreated + r.CategoriesCreated + r.ChannelsCreated
}

// Skipped returns the total count of entities skipped with a warning.
func (r *Report) Skipped() int {
	return r.RolesSkipped + r.CategoriesSkipped + r.ChannelsSkipped
}

// Summary renders a one-line outcome for logs and human output.
func (r *Report) Summary() string {
	if len(r.Warnings) == 0 {
		return fmt.Sprintf("restore completed: %d entities created", r.Created())
	}
	return fmt.Sprintf("restore completed with %d warnings: %d entities created, %d skipped",
		len(r.Warnings), r.Created(), r.Skipped())
}

// Restore creates the snapshot's roles, categories, and channels in
// the destination guild, in that phase order, remapping stored local
// IDs to the identifiers the destination assigns. It is purely
// additive: existing entities in the destination are never touched,
// so restoring twice yields duplicates.
//
// Per-entity failures downgrade to warnings in the report when they
// are survivable (entity-count ceilings, exhausted transient retries);
// authorization rejections and other permanent errors abort the
// restore. A non-nil error may accompany a partially filled report.
func (e *Engine) Restore(ctx context.Context, snap *model.Snapshot, destGuildID string) (*Report, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("snapshot_id", snap.ID, "dest_guild_id", destGuildID)

	report := &Report{SnapshotID: snap.ID, DestGuildID: destGuildID}
	plan := PlanRestore(snap)

	// Local role ID -> destination role ID, filled as roles land.
	// The everyone sentinel needs no entry: it maps to the guild's
	// own ID on the wire.
	roleRemap := make(map[int]string)
	for _, role := range plan.Roles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		created, err := e.createRole(ctx, destGuildID, role)
		if err != nil {
			if warning, ok := survivable(err, "role", role.Name); ok {
				report.RolesSkipped++
				report.Warnings = append(report.Warnings, warning)
				logger.Warn("skipped role", "name", role.Name, "error", err)
				continue
			}
			return report, fmt.Errorf("creating role %q: %w", role.Name, err)
		}
		roleRemap[role.LocalID] = created.ID
		report.RolesCreated++
	}

	categoryRemap := make(map[int]string)
	for _, category := range plan.Categories {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		params := guild.ChannelParams{
			Name:       category.Name,
			Position:   category.Position,
			Overwrites: buildOverwrites(category.Overwrites, destGuildID, roleRemap),
		}
		created, err := e.createCategory(ctx, destGuildID, params)
		if err != nil {
			if warning, ok := survivable(err, "category", category.Name); ok {
				report.CategoriesSkipped++
				report.Warnings = append(report.Warnings, warning)
				logger.Warn("skipped category", "name", category.Name, "error", err)
				continue
			}
			return report, fmt.Errorf("creating category %q: %w", category.Name, err)
		}
		categoryRemap[category.LocalID] = created.ID
		report.CategoriesCreated++
	}

	for _, channel := range plan.Channels {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		params := guild.ChannelParams{
			Name:       channel.Name,
			Type:       wireKind(channel.Kind),
			Position:   channel.Position,
			Overwrites: buildOverwrites(channel.Overwrites, destGuildID, roleRemap),
		}
		if channel.ParentLocalID != nil {
			// A parent whose category was skipped leaves the
			// channel at the guild root.
			params.ParentID = categoryRemap[*channel.ParentLocalID]
		}
		switch channel.Kind {
		case model.KindVoice:
			params.Bitrate = channel.Bitrate
			params.UserLimit = channel.UserLimit
		default:
			params.Topic = channel.Topic
			params.NSFW = channel.NSFW
			params.RateLimitPerUser = channel.SlowmodeSeconds
		}
		_, err := e.createChannel(ctx, destGuildID, params)
		if err != nil {
			if warning, ok := survivable(err, "channel", channel.Name); ok {
				report.ChannelsSkipped++
				report.Warnings = append(report.Warnings, warning)
				logger.Warn("skipped channel", "name", channel.Name, "error", err)
				continue
			}
			return report, fmt.Errorf("creating channel %q: %w", channel.Name, err)
		}
		report.ChannelsCreated++
	}

	logger.Info("restore finished",
		"created", report.Created(),
		"skipped", report.Skipped(),
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (e *Engine) createRole(ctx context.Context, guildID string, record model.RoleRecord) (*guild.Role, error) {
	params := guild.RoleParams{
		Name:        record.Name,
		Color:       record.Color,
		Hoist:       record.Hoist,
		Permissions: record.Permissions,
		Mentionable: record.Mentionable,
	}
	var created *guild.Role
	err := e.createWithRetry(ctx, guildID, ratelimit.ActionRoleCreate, func(ctx context.Context) error {
		var err error
		created, err = e.API.CreateRole(ctx, guildID, params)
		return err
	})
	return created, err
}

func (e *Engine) createCategory(ctx context.Context, guildID string, params guild.ChannelParams) (*guild.Channel, error) {
	var created *guild.Channel
	err := e.createWithRetry(ctx, guildID, ratelimit.ActionChannelCreate, func(ctx context.Context) error {
		var err error
		created, err = e.API.CreateCategory(ctx, guildID, params)
		return err
	})
	return created, err
}

func (e *Engine) createChannel(ctx context.Context, guildID string, params guild.ChannelParams) (*guild.Channel, error) {
	var created *guild.Channel
	err := e.createWithRetry(ctx, guildID, ratelimit.ActionChannelCreate, func(ctx context.Context) error {
		var err error
		created, err = e.API.CreateChannel(ctx, guildID, params)
		return err
	})
	return created, err
}

func (e *Engine) createWithRetry(ctx context.Context, guildID string, action ratelimit.Action, call func(context.Context) error) error {
	return callWithRetry(ctx, e.Limiter, guildID, action, e.MaxAttempts, call)
}

// callWithRetry drives one remote call through the coordinator.
// Rate-limit signals convert the server's hint into a penalty and
// retry without consuming an attempt; transient failures apply the
// minimum penalty and consume one; anything else fails immediately.
func callWithRetry(ctx context.Context, limiter *ratelimit.Coordinator, guildID string, action ratelimit.Action, maxAttempts int, call func(context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; {
		release, err := limiter.Acquire(ctx, guildID, action)
		if err != nil {
			return err
		}
		err = call(ctx)
		release()
		if err == nil {
			return nil
		}
		lastErr = err

		var rateErr *guild.RateLimitError
		if errors.As(err, &rateErr) {
			limiter.Penalize(guildID, action, rateErr.RetryAfter)
			continue
		}
		if guild.IsTransient(err) {
			limiter.Penalize(guildID, action, 0)
			attempt++
			continue
		}
		return err
	}
	return &retriesExhaustedError{attempts: maxAttempts, last: lastErr}
}

// retriesExhaustedError marks a create that failed transiently on
// every allowed attempt. The restore engine downgrades it to a
// warning instead of aborting the run.
type retriesExhaustedError struct {
	attempts int
	last     error
}

func (e *retriesExhaustedError) Error() string {
	return fmt.Sprintf("after %d attempts: %v", e.attempts, e.last)
}

func (e *retriesExhaustedError) Unwrap() error { return e.last }

// survivable classifies a per-entity failure. Only two kinds downgrade
// to warnings: entity-count ceilings and exhausted transient retries.
func survivable(err error, entity, name string) (string, bool) {
	if guild.IsAuthorization(err) {
		return "", false
	}
	if guild.IsEntityLimit(err) {
		return fmt.Sprintf("%s %q: destination at entity limit", entity, name), true
	}
	var exhausted *retriesExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Sprintf("%s %q: %v", entity, name, err), true
	}
	return "", false
}

// buildOverwrites resolves stored overwrite targets against the role
// remap. The everyone sentinel targets the guild's own ID; role
// targets that did not land in the destination are dropped.
func buildOverwrites(records []model.PermissionOverwrite, destGuildID string, roleRemap map[int]string) []guild.Overwrite {
	var overwrites []guild.Overwrite
	for _, record := range records {
		var targetID string
		switch record.TargetKind {
		case model.TargetEveryone:
			targetID = destGuildID
		case model.TargetRole:
			if record.TargetLocalID == nil {
				continue
			}
			remapped, ok := roleRemap[*record.TargetLocalID]
			if !ok {
				continue
			}
			targetID = remapped
		default:
			continue
		}
		overwrites = append(overwrites, guild.Overwrite{
			TargetID:   targetID,
			TargetType: guild.OverwriteTargetRole,
			Allow:      record.Allow,
			Deny:       record.Deny,
		})
	}
	return overwrites
}

// wireKind maps the snapshot kind back to a wire channel type. KindOther
// collapsed channels are recreated as text channels.
func wireKind(kind model.ChannelKind) int {
	if kind == model.KindVoice {
		return guild.ChannelTypeVoice
	}
	return guild.ChannelTypeText
}
