package render

import (
	"strings"
	"testing"
	"time"

	"github.com/guildkeep/guildkeep/internal/backup"
	"github.com/guildkeep/guildkeep/internal/model"
)

func intPtr(v int) *int { return &v }

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		ID:            "a1B2c3",
		SourceGuildID: "123456789",
		CreatedAt:     time.Now().Add(-3 * time.Hour),
		Roles: []model.RoleRecord{
			{LocalID: 0, Name: "mods", Color: 0xFF0000, Hoist: true},
			{LocalID: 1, Name: "members", Mentionable: true},
		},
		Categories: []model.CategoryRecord{
			{LocalID: 0, Name: "Text"},
		},
		Channels: []model.ChannelRecord{
			{LocalID: 0, Kind: model.KindText, Name: "general", ParentLocalID: intPtr(0),
				Overwrites: []model.PermissionOverwrite{{TargetKind: model.TargetEveryone, Deny: 1024}}},
			{LocalID: 1, Kind: model.KindVoice, Name: "lounge"},
		},
	}
}

func TestRenderSnapshotDetailPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderSnapshotDetail(sampleSnapshot())

	for _, want := range []string{
		"a1B2c3",
		"guild 123456789",
		"2 roles, 1 categories, 2 channels",
		"mods (hoist)",
		"members (mentionable)",
		"TEXT",
		"# general",
		"♪ lounge",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}

	// Uncategorized lounge is listed before the Text category block.
	if strings.Index(got, "lounge") > strings.Index(got, "TEXT") {
		t.Errorf("uncategorized channel not listed first:\n%s", got)
	}
}

func TestRenderReportClean(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	report := &backup.Report{RolesCreated: 2, CategoriesCreated: 1, ChannelsCreated: 3}
	got := RenderReport(report)

	if !strings.Contains(got, "6 entities created") {
		t.Errorf("expected total in output, got:\n%s", got)
	}
	if strings.Contains(got, "Warnings") {
		t.Errorf("clean report renders warning section:\n%s", got)
	}
}

func TestRenderReportWithWarnings(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	report := &backup.Report{
		RolesCreated: 1,
		RolesSkipped: 1,
		Warnings:     []string{`role "mods": destination at entity limit`},
	}
	got := RenderReport(report)

	if !strings.Contains(got, "1 warnings") {
		t.Errorf("expected warning count in summary:\n%s", got)
	}
	if !strings.Contains(got, "destination at entity limit") {
		t.Errorf("expected warning detail:\n%s", got)
	}
}
