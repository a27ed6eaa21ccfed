package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a snapshot from a JSON export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		data, err := os.ReadFile(args[0])
		if err != nil {
			return cmdErr(fmt.Errorf("reading file: %w", err), output.ErrGeneral)
		}

		var export model.ExportData
		if err := json.Unmarshal(data, &export); err != nil {
			return cmdErr(fmt.Errorf("parsing JSON: %w", err), output.ErrValidation)
		}

		// Validate before any mutations.
		if export.Version != model.ExportVersion {
			return cmdErr(
				fmt.Errorf("unsupported version %d: expected %d", export.Version, model.ExportVersion),
				output.ErrValidation,
			)
		}
		if export.Snapshot == nil {
			return cmdErr(fmt.Errorf("export file has no snapshot"), output.ErrValidation)
		}
		snap := export.Snapshot
		if defects := snap.Verify(); len(defects) > 0 {
			msg := fmt.Sprintf("validation failed with %d error(s):", len(defects))
			for _, d := range defects {
				msg += "\n  - " + d.String()
			}
			return cmdErr(fmt.Errorf("%s", msg), output.ErrValidation)
		}

		// Keep the exported ID when it is free; otherwise mint a new
		// one so the import never clobbers an existing snapshot.
		renamed := false
		if model.ValidateID(snap.ID) != nil || db.SnapshotIDTaken(conn, snap.ID) {
			snap.ID = model.GenerateID(func(id string) bool {
				return db.SnapshotIDTaken(conn, id)
			})
			renamed = true
		}

		if err := db.PutSnapshot(conn, snap); err != nil {
			return cmdErr(fmt.Errorf("storing snapshot: %w", err), output.ErrGeneral)
		}

		message := fmt.Sprintf("Imported snapshot %s", snap.ID)
		if renamed {
			message += " (assigned a new ID)"
		}
		w.Success(struct {
			ID      string `json:"id"`
			Renamed bool   `json:"renamed"`
		}{ID: snap.ID, Renamed: renamed}, message)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
