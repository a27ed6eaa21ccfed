package model

import "fmt"

// Defect describes a single unresolvable intra-snapshot reference or a
// malformed record. Defects mark individual links as corrupt; they are
// never fatal to the snapshot as a whole. The restore engine drops the
// affected link and keeps going.
type Defect struct {
	Entity  string `json:"entity"`   // "role", "category", "channel"
	LocalID int    `json:"local_id"` // local ID of the entity carrying the defect
	Detail  string `json:"detail"`
}

func (d Defect) String() string {
	return fmt.Sprintf("%s %d: %s", d.Entity, d.LocalID, d.Detail)
}

// Verify checks every intra-snapshot reference: local ID uniqueness per
// entity class, channel parent links, and overwrite role targets. It
// returns one Defect per broken link and an empty slice for a fully
// consistent snapshot.
func (s *Snapshot) Verify() []Defect {
	var defects []Defect

	roles := make(map[int]bool, len(s.Roles))
	for _, r := range s.Roles {
		if roles[r.LocalID] {
			defects = append(defects, Defect{
				Entity:  "role",
				LocalID: r.LocalID,
				Detail:  "duplicate local ID",
			})
			continue
		}
		roles[r.LocalID] = true
	}

	categories := make(map[int]bool, len(s.Categories))
	for _, c := range s.Categories {
		if categories[c.LocalID] {
			defects = append(defects, Defect{
				Entity:  "category",
				LocalID: c.LocalID,
				Detail:  "duplicate local ID",
			})
			continue
		}
		categories[c.LocalID] = true
		defects = append(defects, verifyOverwrites("category", c.LocalID, c.Overwrites, roles)...)
	}

	channels := make(map[int]bool, len(s.Channels))
	for _, ch := range s.Channels {
		if channels[ch.LocalID] {
			defects = append(defects, Defect{
				Entity:  "channel",
				LocalID: ch.LocalID,
				Detail:  "duplicate local ID",
			})
			continue
		}
		channels[ch.LocalID] = true

		if ch.ParentLocalID != nil && !categories[*ch.ParentLocalID] {
			defects = append(defects, Defect{
				Entity:  "channel",
				LocalID: ch.LocalID,
				Detail:  fmt.Sprintf("parent category %d not in snapshot", *ch.ParentLocalID),
			})
		}
		defects = append(defects, verifyOverwrites("channel", ch.LocalID, ch.Overwrites, roles)...)
	}

	return defects
}

// verifyOverwrites checks the role targets of one entity's overwrite
// set against the snapshot's role local IDs.
func verifyOverwrites(entity string, localID int, overwrites []PermissionOverwrite, roles map[int]bool) []Defect {
	var defects []Defect
	for _, ow := range overwrites {
		switch ow.TargetKind {
		case TargetEveryone:
			if ow.TargetLocalID != nil {
				defects = append(defects, Defect{
					Entity:  entity,
					LocalID: localID,
					Detail:  "everyone overwrite carries a role target",
				})
			}
		case TargetRole:
			if ow.TargetLocalID == nil {
				defects = append(defects, Defect{
					Entity:  entity,
					LocalID: localID,
					Detail:  "role overwrite missing its target",
				})
			} else if !roles[*ow.TargetLocalID] {
				defects = append(defects, Defect{
					Entity:  entity,
					LocalID: localID,
					Detail:  fmt.Sprintf("overwrite target role %d not in snapshot", *ow.TargetLocalID),
				})
			}
		default:
			defects = append(defects, Defect{
				Entity:  entity,
				LocalID: localID,
				Detail:  fmt.Sprintf("unknown overwrite target kind %q", ow.TargetKind),
			})
		}
	}
	return defects
}
