package backup

import (
	"sort"

	"github.com/guildkeep/guildkeep/internal/model"
)

// Plan is the ordered work list for one restore: roles first, then
// categories, then channels, so that every ID a later phase references
// has already been remapped by an earlier one.
type Plan struct {
	Roles      []model.RoleRecord
	Categories []model.CategoryRecord
	Channels   []model.ChannelRecord
}

// PlanRestore orders a snapshot's records for creation. Roles keep
// snapshot order; categories and channels are stable-sorted by stored
// position so siblings land in their captured visual order regardless
// of how the snapshot interleaved them.
func PlanRestore(snap *model.Snapshot) *Plan {
	plan := &Plan{
		Roles:      append([]model.RoleRecord(nil), snap.Roles...),
		Categories: append([]model.CategoryRecord(nil), snap.Categories...),
		Channels:   append([]model.ChannelRecord(nil), snap.Channels...),
	}
	sort.SliceStable(plan.Categories, func(i, j int) bool {
		return plan.Categories[i].Position < plan.Categories[j].Position
	})
	sort.SliceStable(plan.Channels, func(i, j int) bool {
		return plan.Channels[i].Position < plan.Channels[j].Position
	})
	return plan
}
