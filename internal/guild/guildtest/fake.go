// Package guildtest provides a scriptable in-memory guild.API for
// tests: fetches serve a seeded structure (or whatever a previous
// restore created), creates assign sequential IDs, and failures and
// rate-limit signals can be queued per entity name.
package guildtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/guildkeep/guildkeep/internal/guild"
)

// State is one fake guild's accumulated created entities.
type State struct {
	Roles      []guild.Role
	Categories []guild.Channel
	Channels   []guild.Channel
}

// Fake is an in-memory guild.API. The zero value is not usable; call
// NewFake.
type Fake struct {
	mu            sync.Mutex
	structures    map[string]*guild.Structure
	states        map[string]*State
	failures      map[string][]error
	fetchFailures map[string][]error
	nextID        int
}

var _ guild.API = (*Fake)(nil)

// NewFake creates an empty fake API.
func NewFake() *Fake {
	return &Fake{
		structures:    make(map[string]*guild.Structure),
		states:        make(map[string]*State),
		failures:      make(map[string][]error),
		fetchFailures: make(map[string][]error),
	}
}

// SeedStructure sets the structure FetchGuildStructure returns for a
// source guild.
func (f *Fake) SeedStructure(guildID string, s *guild.Structure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.GuildID = guildID
	if s.EveryoneRoleID == "" {
		s.EveryoneRoleID = guildID
	}
	f.structures[guildID] = s
}

// FailNext queues err to be returned by the next create call for an
// entity with the given name. Multiple queued errors are consumed in
// order; once drained, creates for that name succeed.
func (f *Fake) FailNext(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = append(f.failures[name], err)
}

// FailNextFetch queues err to be returned by the next
// FetchGuildStructure call for guildID. Multiple queued errors are
// consumed in order; once drained, fetches succeed again.
func (f *Fake) FailNextFetch(guildID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchFailures[guildID] = append(f.fetchFailures[guildID], err)
}

// Created returns a copy of the entities created on a guild so far.
func (f *Fake) Created(guildID string) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state(guildID)
	return State{
		Roles:      append([]guild.Role(nil), st.Roles...),
		Categories: append([]guild.Channel(nil), st.Categories...),
		Channels:   append([]guild.Channel(nil), st.Channels...),
	}
}

// FetchGuildStructure returns the seeded structure for guildID, or a
// structure synthesized from entities created on it (an empty guild
// with only its base role when nothing was created). This lets tests
// build a snapshot from the result of a previous restore.
func (f *Fake) FetchGuildStructure(_ context.Context, guildID string) (*guild.Structure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if queue := f.fetchFailures[guildID]; len(queue) > 0 {
		err := queue[0]
		f.fetchFailures[guildID] = queue[1:]
		return nil, err
	}

	if s, ok := f.structures[guildID]; ok {
		return s, nil
	}

	st := f.state(guildID)
	structure := &guild.Structure{
		GuildID:        guildID,
		EveryoneRoleID: guildID,
		Roles: []guild.Role{
			{ID: guildID, Name: "@everyone", Position: 0},
		},
	}
	structure.Roles = append(structure.Roles, st.Roles...)
	structure.Channels = append(structure.Channels, st.Categories...)
	structure.Channels = append(structure.Channels, st.Channels...)
	return structure, nil
}

// CreateRole records a role creation and returns it with a fresh ID.
func (f *Fake) CreateRole(_ context.Context, guildID string, params guild.RoleParams) (*guild.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popFailure(params.Name); err != nil {
		return nil, err
	}

	st := f.state(guildID)
	role := guild.Role{
		ID:          f.newID(),
		Name:        params.Name,
		Color:       params.Color,
		Hoist:       params.Hoist,
		Position:    len(st.Roles) + 1,
		Permissions: params.Permissions,
		Mentionable: params.Mentionable,
	}
	st.Roles = append(st.Roles, role)
	return &role, nil
}

// CreateCategory records a category creation.
func (f *Fake) CreateCategory(_ context.Context, guildID string, params guild.ChannelParams) (*guild.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popFailure(params.Name); err != nil {
		return nil, err
	}

	st := f.state(guildID)
	params.Type = guild.ChannelTypeCategory
	category := channelFromParams(f.newID(), params)
	st.Categories = append(st.Categories, category)
	return &category, nil
}

// CreateChannel records a channel creation.
func (f *Fake) CreateChannel(_ context.Context, guildID string, params guild.ChannelParams) (*guild.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popFailure(params.Name); err != nil {
		return nil, err
	}

	st := f.state(guildID)
	channel := channelFromParams(f.newID(), params)
	st.Channels = append(st.Channels, channel)
	return &channel, nil
}

func (f *Fake) state(guildID string) *State {
	st, ok := f.states[guildID]
	if !ok {
		st = &State{}
		f.states[guildID] = st
	}
	return st
}

func (f *Fake) popFailure(name string) error {
	queue := f.failures[name]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	f.failures[name] = queue[1:]
	return err
}

func (f *Fake) newID() string {
	f.nextID++
	return fmt.Sprintf("fake-%d", f.nextID)
}

func channelFromParams(id string, params guild.ChannelParams) guild.Channel {
	return guild.Channel{
		ID:               id,
		Type:             params.Type,
		Name:             params.Name,
		Position:         params.Position,
		ParentID:         params.ParentID,
		Topic:            params.Topic,
		NSFW:             params.NSFW,
		RateLimitPerUser: params.RateLimitPerUser,
		Bitrate:          params.Bitrate,
		UserLimit:        params.UserLimit,
		Overwrites:       params.Overwrites,
	}
}
