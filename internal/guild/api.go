// Package guild models the remote collaboration-server API as a
// capability interface: fetch one guild's structure, create roles and
// channels. The builder and restore engine depend only on the API
// interface, so tests exercise them against guildtest.Fake without
// network access.
package guild

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Channel type codes on the wire.
const (
	ChannelTypeText     = 0
	ChannelTypeVoice    = 2
	ChannelTypeCategory = 4
)

// Overwrite target type codes on the wire.
const (
	OverwriteTargetRole   = 0
	OverwriteTargetMember = 1
)

// Role is a guild role as the remote API reports it. Managed roles
// belong to integrations and cannot be recreated. The guild's implicit
// base role shares the guild's own ID.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Position    int    `json:"position"`
	Permissions uint64 `json:"permissions,string"`
	Managed     bool   `json:"managed"`
	Mentionable bool   `json:"mentionable"`
}

// Overwrite is a permission overwrite as the remote API reports it.
type Overwrite struct {
	TargetID   string `json:"id"`
	TargetType int    `json:"type"`
	Allow      uint64 `json:"allow,string"`
	Deny       uint64 `json:"deny,string"`
}

// Channel is a guild channel (categories included) as the remote API
// reports it.
type Channel struct {
	ID               string      `json:"id"`
	Type             int         `json:"type"`
	Name             string      `json:"name"`
	Position         int         `json:"position"`
	ParentID         string      `json:"parent_id,omitempty"`
	Topic            string      `json:"topic,omitempty"`
	NSFW             bool        `json:"nsfw,omitempty"`
	RateLimitPerUser int         `json:"rate_limit_per_user,omitempty"`
	Bitrate          int         `json:"bitrate,omitempty"`
	UserLimit        int         `json:"user_limit,omitempty"`
	Overwrites       []Overwrite `json:"permission_overwrites,omitempty"`
}

// Structure is one guild's full structural state: every role and every
// channel (categories are channels of ChannelTypeCategory).
// EveryoneRoleID identifies the implicit base role.
type Structure struct {
	GuildID        string
	EveryoneRoleID string
	Roles          []Role
	Channels       []Channel
}

// RoleParams are the attributes for creating a role.
type RoleParams struct {
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Permissions uint64 `json:"permissions,string"`
	Mentionable bool   `json:"mentionable"`
}

// ChannelParams are the attributes for creating a channel or category.
type ChannelParams struct {
	Name             string      `json:"name"`
	Type             int         `json:"type"`
	Position         int         `json:"position"`
	ParentID         string      `json:"parent_id,omitempty"`
	Topic            string      `json:"topic,omitempty"`
	NSFW             bool        `json:"nsfw,omitempty"`
	RateLimitPerUser int         `json:"rate_limit_per_user,omitempty"`
	Bitrate          int         `json:"bitrate,omitempty"`
	UserLimit        int         `json:"user_limit,omitempty"`
	Overwrites       []Overwrite `json:"permission_overwrites,omitempty"`
}

// API is the remote guild capability. Identifiers are assigned by the
// remote side and returned only on acknowledgment; every create may
// signal a rate-limit condition as a *RateLimitError.
type API interface {
	// FetchGuildStructure enumerates the guild's roles and channels.
	FetchGuildStructure(ctx context.Context, guildID string) (*Structure, error)

	// CreateRole creates a role and returns it with its new ID.
	CreateRole(ctx context.Context, guildID string, params RoleParams) (*Role, error)

	// CreateCategory creates a category channel and returns it with
	// its new ID.
	CreateCategory(ctx context.Context, guildID string, params ChannelParams) (*Channel, error)

	// CreateChannel creates a non-category channel and returns it with
	// its new ID.
	CreateChannel(ctx context.Context, guildID string, params ChannelParams) (*Channel, error)
}

// APIError is a non-rate-limit rejection from the remote API.
type APIError struct {
	StatusCode int
	Code       int // remote error code, 0 when absent
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("guild API: %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("guild API: %d: %s", e.StatusCode, e.Message)
}

// RateLimitError is the remote API's rate-limit signal. RetryAfter is
// the server's hint; zero means no hint was given.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("guild API: rate limited, retry after %s", e.RetryAfter)
}

// Remote error codes for entity-count ceilings.
const (
	ErrCodeMaxRoles    = 30005
	ErrCodeMaxChannels = 30013
)

// IsAuthorization reports whether err is a permission rejection: the
// caller or the bot lacks the required elevated permission or role
// hierarchy position.
func IsAuthorization(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsEntityLimit reports whether err means the destination already holds
// the maximum count of the entity kind being created.
func IsEntityLimit(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == ErrCodeMaxRoles || apiErr.Code == ErrCodeMaxChannels
	}
	return false
}

// IsTransient reports whether err is worth retrying: transport
// failures and server-side 5xx errors. Rate-limit signals are handled
// separately by the coordinator and are not transient in this sense;
// other 4xx rejections are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// Non-API errors (connection refused, timeout, EOF) are transient.
	return true
}
