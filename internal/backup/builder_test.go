package backup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guildkeep/guildkeep/internal/clock"
	"github.com/guildkeep/guildkeep/internal/guild"
	"github.com/guildkeep/guildkeep/internal/guild/guildtest"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLimiter returns a coordinator on a fake clock with a
// background advancer, so penalty parks resolve without real sleeping.
func newTestLimiter(t *testing.T) *ratelimit.Coordinator {
	t.Helper()
	clk := clock.Fake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		clk.After(time.Hour) // release the advancer from BlockUntil
	})
	go func() {
		for {
			clk.BlockUntil(1)
			select {
			case <-done:
				return
			default:
			}
			clk.Advance(time.Minute)
		}
	}()
	return ratelimit.New(clk, discardLogger())
}

func seedSourceGuild(fake *guildtest.Fake) {
	fake.SeedStructure("src", &guild.Structure{
		Roles: []guild.Role{
			{ID: "src", Name: "@everyone", Position: 0, Permissions: 104320577},
			{ID: "r-mods", Name: "mods", Color: 0xFF0000, Hoist: true, Position: 2, Permissions: 8, Mentionable: true},
			{ID: "r-bot", Name: "some-bot", Position: 3, Managed: true},
			{ID: "r-members", Name: "members", Position: 1, Permissions: 104320577},
		},
		Channels: []guild.Channel{
			{ID: "c-general", Type: guild.ChannelTypeText, Name: "general", Position: 0, ParentID: "cat-text", Topic: "hello", RateLimitPerUser: 5},
			{ID: "cat-text", Type: guild.ChannelTypeCategory, Name: "Text", Position: 1, Overwrites: []guild.Overwrite{
				{TargetID: "src", TargetType: guild.OverwriteTargetRole, Deny: 1024},
				{TargetID: "r-mods", TargetType: guild.OverwriteTargetRole, Allow: 1024},
			}},
			{ID: "cat-voice", Type: guild.ChannelTypeCategory, Name: "Voice", Position: 0},
			{ID: "c-lounge", Type: guild.ChannelTypeVoice, Name: "lounge", Position: 0, ParentID: "cat-voice", Bitrate: 64000, UserLimit: 10},
			{ID: "c-news", Type: 5, Name: "announcements", Position: 1, Overwrites: []guild.Overwrite{
				{TargetID: "r-bot", TargetType: guild.OverwriteTargetRole, Allow: 2048},
				{TargetID: "u-someone", TargetType: guild.OverwriteTargetMember, Allow: 2048},
			}},
		},
	})
}

func TestBuildCapturesStructure(t *testing.T) {
	fake := guildtest.NewFake()
	seedSourceGuild(fake)

	b := &Builder{API: fake, Limiter: newTestLimiter(t), Logger: discardLogger()}
	snap, err := b.Build(context.Background(), "src")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if snap.ID != "" {
		t.Errorf("snapshot ID = %q, want empty until persisted", snap.ID)
	}
	if snap.SourceGuildID != "src" {
		t.Errorf("SourceGuildID = %q, want src", snap.SourceGuildID)
	}
	if snap.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	// Base role and the managed bot role are excluded.
	if len(snap.Roles) != 2 {
		t.Fatalf("got %d roles, want 2: %+v", len(snap.Roles), snap.Roles)
	}
	for i, want := range []string{"mods", "members"} {
		if snap.Roles[i].Name != want {
			t.Errorf("role[%d].Name = %q, want %q", i, snap.Roles[i].Name, want)
		}
		if snap.Roles[i].LocalID != i {
			t.Errorf("role[%d].LocalID = %d, want %d", i, snap.Roles[i].LocalID, i)
		}
	}
	if snap.Roles[0].Permissions != 8 || !snap.Roles[0].Hoist || !snap.Roles[0].Mentionable {
		t.Errorf("mods role attributes not captured: %+v", snap.Roles[0])
	}

	if len(snap.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(snap.Categories))
	}
	if snap.Categories[0].Name != "Text" || snap.Categories[1].Name != "Voice" {
		t.Errorf("categories not in enumeration order: %+v", snap.Categories)
	}

	if len(snap.Channels) != 3 {
		t.Fatalf("got %d channels, want 3", len(snap.Channels))
	}
	general := snap.Channels[0]
	if general.Kind != model.KindText || general.Topic != "hello" || general.SlowmodeSeconds != 5 {
		t.Errorf("general not captured: %+v", general)
	}
	if general.ParentLocalID == nil || *general.ParentLocalID != 0 {
		t.Errorf("general.ParentLocalID = %v, want 0 (Text)", general.ParentLocalID)
	}
	lounge := snap.Channels[1]
	if lounge.Kind != model.KindVoice || lounge.Bitrate != 64000 || lounge.UserLimit != 10 {
		t.Errorf("lounge not captured: %+v", lounge)
	}
	news := snap.Channels[2]
	if news.Kind != model.KindOther {
		t.Errorf("announcements kind = %q, want other", news.Kind)
	}

	if err := snap.Verify(); len(err) != 0 {
		t.Errorf("built snapshot has defects: %v", err)
	}
}

func TestBuildConvertsOverwrites(t *testing.T) {
	fake := guildtest.NewFake()
	seedSourceGuild(fake)

	b := &Builder{API: fake, Limiter: newTestLimiter(t), Logger: discardLogger()}
	snap, err := b.Build(context.Background(), "src")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Text category: base-role deny plus a mods allow.
	ows := snap.Categories[0].Overwrites
	if len(ows) != 2 {
		t.Fatalf("got %d overwrites, want 2: %+v", len(ows), ows)
	}
	if ows[0].TargetKind != model.TargetEveryone || ows[0].TargetLocalID != nil || ows[0].Deny != 1024 {
		t.Errorf("everyone overwrite = %+v", ows[0])
	}
	if ows[1].TargetKind != model.TargetRole || ows[1].TargetLocalID == nil || *ows[1].TargetLocalID != 0 {
		t.Errorf("mods overwrite = %+v", ows[1])
	}

	// Announcements: managed-role and member targets are dropped.
	if n := len(snap.Channels[2].Overwrites); n != 0 {
		t.Errorf("got %d overwrites on announcements, want 0", n)
	}
}

func TestBuildFetchErrorReturnsNothing(t *testing.T) {
	fake := guildtest.NewFake()
	// No structure seeded and nothing created: the fake synthesizes an
	// empty guild, so force the failure through a wrapped API.
	failing := &failingAPI{API: fake, err: &guild.APIError{StatusCode: 403, Message: "missing access"}}

	b := &Builder{API: failing, Limiter: newTestLimiter(t), Logger: discardLogger()}
	snap, err := b.Build(context.Background(), "src")
	if err == nil {
		t.Fatal("Build succeeded, want error")
	}
	if snap != nil {
		t.Errorf("got partial snapshot %+v, want nil", snap)
	}
	if !guild.IsAuthorization(err) {
		t.Errorf("error %v not classified as authorization", err)
	}
}

func TestBuildAbsorbsRateLimitOnFetch(t *testing.T) {
	fake := guildtest.NewFake()
	seedSourceGuild(fake)
	fake.FailNextFetch("src", &guild.RateLimitError{RetryAfter: 2 * time.Second})

	// MaxAttempts of 1: a rate-limit hint must not consume it.
	b := &Builder{API: fake, Limiter: newTestLimiter(t), Logger: discardLogger(), MaxAttempts: 1}
	snap, err := b.Build(context.Background(), "src")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Roles) != 2 || len(snap.Categories) != 2 || len(snap.Channels) != 3 {
		t.Errorf("snapshot incomplete after rate-limited fetch: %d/%d/%d",
			len(snap.Roles), len(snap.Categories), len(snap.Channels))
	}
}

func TestBuildRetriesTransientFetch(t *testing.T) {
	fake := guildtest.NewFake()
	seedSourceGuild(fake)
	fake.FailNextFetch("src", &guild.APIError{StatusCode: 503, Message: "service unavailable"})
	fake.FailNextFetch("src", &guild.APIError{StatusCode: 502, Message: "bad gateway"})

	b := &Builder{API: fake, Limiter: newTestLimiter(t), Logger: discardLogger(), MaxAttempts: 3}
	snap, err := b.Build(context.Background(), "src")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if snap.SourceGuildID != "src" || len(snap.Channels) != 3 {
		t.Errorf("snapshot incomplete after transient fetch failures: %+v", snap)
	}
}

func TestBuildTransientFetchExhaustion(t *testing.T) {
	fake := guildtest.NewFake()
	seedSourceGuild(fake)
	fake.FailNextFetch("src", &guild.APIError{StatusCode: 503, Message: "service unavailable"})
	fake.FailNextFetch("src", &guild.APIError{StatusCode: 503, Message: "service unavailable"})

	b := &Builder{API: fake, Limiter: newTestLimiter(t), Logger: discardLogger(), MaxAttempts: 2}
	snap, err := b.Build(context.Background(), "src")
	if err == nil {
		t.Fatal("Build succeeded, want error after exhausting attempts")
	}
	if snap != nil {
		t.Errorf("got partial snapshot %+v, want nil", snap)
	}
}

func TestBuildEmptyGuild(t *testing.T) {
	fake := guildtest.NewFake()

	b := &Builder{API: fake, Limiter: newTestLimiter(t), Logger: discardLogger()}
	snap, err := b.Build(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Roles) != 0 || len(snap.Categories) != 0 || len(snap.Channels) != 0 {
		t.Errorf("empty guild produced entities: %+v", snap)
	}
}

// failingAPI fails FetchGuildStructure and delegates everything else.
type failingAPI struct {
	guild.API
	err error
}

func (f *failingAPI) FetchGuildStructure(ctx context.Context, guildID string) (*guild.Structure, error) {
	return nil, f.err
}
