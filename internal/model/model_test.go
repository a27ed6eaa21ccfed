package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestGenerateIDShape(t *testing.T) {
	id := GenerateID(nil)
	if err := ValidateID(id); err != nil {
		t.Errorf("GenerateID produced invalid ID %q: %v", id, err)
	}
}

func TestGenerateIDAvoidsTaken(t *testing.T) {
	// Reject the first two candidates; the generator must keep trying.
	rejected := 0
	id := GenerateID(func(string) bool {
		if rejected < 2 {
			rejected++
			return true
		}
		return false
	})
	if rejected != 2 {
		t.Errorf("taken callback consulted %d times, want 2 rejections", rejected)
	}
	if err := ValidateID(id); err != nil {
		t.Errorf("final ID %q invalid: %v", id, err)
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"abc123", false},
		{"ABCxyz", false},
		{"000000", false},
		{"", true},
		{"abc", true},
		{"abcd1234", true},
		{"abc-12", true},
		{"abc 12", true},
	}

	for _, tt := range tests {
		err := ValidateID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateChannelKind(t *testing.T) {
	for _, k := range []ChannelKind{KindText, KindVoice, KindOther} {
		if err := ValidateChannelKind(k); err != nil {
			t.Errorf("ValidateChannelKind(%q) unexpected error: %v", k, err)
		}
	}
	if err := ValidateChannelKind("category"); err == nil {
		t.Error("ValidateChannelKind('category') expected error, got nil")
	}
}

func intPtr(v int) *int { return &v }

func TestSnapshotJSONRoundTrip(t *testing.T) {
	snap := Snapshot{
		ID:            "abc123",
		SourceGuildID: "900000000000000001",
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Roles: []RoleRecord{
			{LocalID: 0, Name: "admin", Color: 0xFF0000, Permissions: 8, Hoist: true, Position: 1},
		},
		Categories: []CategoryRecord{
			{LocalID: 0, Name: "general", Position: 0, Overwrites: []PermissionOverwrite{
				{TargetKind: TargetEveryone, Deny: 1024},
			}},
		},
		Channels: []ChannelRecord{
			{LocalID: 0, Kind: KindText, Name: "chat", ParentLocalID: intPtr(0), Topic: "hello",
				Overwrites: []PermissionOverwrite{
					{TargetKind: TargetRole, TargetLocalID: intPtr(0), Allow: 2048},
				}},
			{LocalID: 1, Kind: KindVoice, Name: "lounge", Position: 1, Bitrate: 64000, UserLimit: 5},
		},
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != snap.ID || got.SourceGuildID != snap.SourceGuildID {
		t.Errorf("identity fields lost: got %q/%q", got.ID, got.SourceGuildID)
	}
	if len(got.Channels) != 2 || got.Channels[0].ParentLocalID == nil || *got.Channels[0].ParentLocalID != 0 {
		t.Errorf("channel parent reference lost: %+v", got.Channels)
	}
	if got.Channels[0].Overwrites[0].TargetLocalID == nil || *got.Channels[0].Overwrites[0].TargetLocalID != 0 {
		t.Errorf("overwrite target lost: %+v", got.Channels[0].Overwrites)
	}
	if got.Channels[1].Bitrate != 64000 || got.Channels[1].UserLimit != 5 {
		t.Errorf("voice attributes lost: %+v", got.Channels[1])
	}
}

func TestVerifyCleanSnapshot(t *testing.T) {
	snap := Snapshot{
		Roles:      []RoleRecord{{LocalID: 0}, {LocalID: 1}},
		Categories: []CategoryRecord{{LocalID: 0}},
		Channels: []ChannelRecord{
			{LocalID: 0, Kind: KindText, ParentLocalID: intPtr(0), Overwrites: []PermissionOverwrite{
				{TargetKind: TargetRole, TargetLocalID: intPtr(1)},
				{TargetKind: TargetEveryone},
			}},
		},
	}
	if defects := snap.Verify(); len(defects) != 0 {
		t.Errorf("expected no defects, got %v", defects)
	}
}

func TestVerifyDanglingReferences(t *testing.T) {
	snap := Snapshot{
		Roles:      []RoleRecord{{LocalID: 0}},
		Categories: []CategoryRecord{{LocalID: 0}},
		Channels: []ChannelRecord{
			// Parent category 7 does not exist.
			{LocalID: 0, Kind: KindText, ParentLocalID: intPtr(7)},
			// Overwrite target role 9 does not exist.
			{LocalID: 1, Kind: KindText, Overwrites: []PermissionOverwrite{
				{TargetKind: TargetRole, TargetLocalID: intPtr(9)},
			}},
		},
	}

	defects := snap.Verify()
	if len(defects) != 2 {
		t.Fatalf("expected 2 defects, got %d: %v", len(defects), defects)
	}
	if defects[0].Entity != "channel" || defects[0].LocalID != 0 {
		t.Errorf("first defect should be channel 0 parent, got %v", defects[0])
	}
	if defects[1].Entity != "channel" || defects[1].LocalID != 1 {
		t.Errorf("second defect should be channel 1 overwrite, got %v", defects[1])
	}
}

func TestVerifyDuplicateLocalIDs(t *testing.T) {
	snap := Snapshot{
		Roles: []RoleRecord{{LocalID: 0}, {LocalID: 0}},
	}
	defects := snap.Verify()
	if len(defects) != 1 || defects[0].Entity != "role" {
		t.Errorf("expected one duplicate-role defect, got %v", defects)
	}
}

func TestVerifyMalformedOverwrites(t *testing.T) {
	snap := Snapshot{
		Categories: []CategoryRecord{
			{LocalID: 0, Overwrites: []PermissionOverwrite{
				{TargetKind: TargetEveryone, TargetLocalID: intPtr(3)},
				{TargetKind: TargetRole, TargetLocalID: nil},
			}},
		},
	}
	defects := snap.Verify()
	if len(defects) != 2 {
		t.Fatalf("expected 2 defects, got %v", defects)
	}
}
