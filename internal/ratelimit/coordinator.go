// Package ratelimit coordinates calls against the remote API's
// per-guild, per-action rate-limit buckets. The remote side assigns
// identifiers only on acknowledgment, so the coordinator also
// serializes mutating calls per guild: concurrent creations on one
// guild would race the identifier remap built during restore.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/guildkeep/guildkeep/internal/clock"
)

// Action is a rate-limit bucket category. Buckets are scoped per guild
// and per action, so one guild's role restore does not throttle another
// guild's channel creation.
type Action string

const (
	ActionFetch         Action = "fetch"
	ActionRoleCreate    Action = "role-create"
	ActionChannelCreate Action = "channel-create"
)

// MinBackoff is the park duration applied when the remote API signals
// a rate limit without a retry-after hint, and the back-off applied to
// transient failures. The coordinator never guesses beyond this fixed
// minimum.
const MinBackoff = time.Second

type bucketKey struct {
	guildID string
	action  Action
}

// Coordinator gates calls to the remote API. Acquire blocks until the
// (guild, action) bucket has capacity and the guild's single in-flight
// slot is free; Penalize parks a bucket after the remote API signals a
// rate limit.
type Coordinator struct {
	clk    clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	slots   map[string]chan struct{}
	buckets map[bucketKey]time.Time // earliest next grant per bucket
}

// New creates a Coordinator. A nil clk uses the real clock; a nil
// logger uses slog.Default().
func New(clk clock.Clock, logger *slog.Logger) *Coordinator {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		clk:     clk,
		logger:  logger,
		slots:   make(map[string]chan struct{}),
		buckets: make(map[bucketKey]time.Time),
	}
}

// Acquire blocks until the caller may issue exactly one call for the
// given guild and action, then returns a release function. The caller
// must invoke release after the call completes (after any Penalize for
// a rate-limit response). Returns the context's error if it is
// cancelled while waiting.
func (c *Coordinator) Acquire(ctx context.Context, guildID string, action Action) (release func(), err error) {
	slot := c.slot(guildID)

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Wait out any penalty on the bucket. The slot is held during the
	// wait; that is correct because only one call per guild may be in
	// flight anyway, and the penalty was set by the previous holder.
	for {
		c.mu.Lock()
		notBefore := c.buckets[bucketKey{guildID, action}]
		c.mu.Unlock()

		wait := notBefore.Sub(c.clk.Now())
		if wait <= 0 {
			break
		}

		c.logger.Debug("bucket parked, waiting",
			"guild_id", guildID, "action", string(action), "wait", wait)

		select {
		case <-c.clk.After(wait):
		case <-ctx.Done():
			<-slot
			return nil, ctx.Err()
		}
	}

	return func() { <-slot }, nil
}

// Penalize parks the (guild, action) bucket until retryAfter elapses.
// A non-positive retryAfter (no hint from the remote API) parks it for
// MinBackoff. Penalties never shorten an existing park.
func (c *Coordinator) Penalize(guildID string, action Action, retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = MinBackoff
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := bucketKey{guildID, action}
	notBefore := c.clk.Now().Add(retryAfter)
	if notBefore.After(c.buckets[key]) {
		c.buckets[key] = notBefore
	}

	c.logger.Debug("bucket penalized",
		"guild_id", guildID, "action", string(action), "retry_after", retryAfter)
}

func (c *Coordinator) slot(guildID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[guildID]
	if !ok {
		slot = make(chan struct{}, 1)
		c.slots[guildID] = slot
	}
	return slot
}
