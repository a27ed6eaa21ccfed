package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/guildkeep/guildkeep/internal/render"
	"github.com/spf13/cobra"
)

type showResult struct {
	Snapshot *model.Snapshot `json:"snapshot"`
	Defects  []string        `json:"defects"`
}

var showCmd = &cobra.Command{
	Use:   "show [snapshot-id]",
	Short: "Show snapshot details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		if err := model.ValidateID(args[0]); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		snap, err := db.GetSnapshot(conn, args[0])
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("snapshot %s not found", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("fetching snapshot: %w", err), output.ErrGeneral)
		}

		defects := []string{}
		for _, d := range snap.Verify() {
			defects = append(defects, d.String())
		}

		result := showResult{Snapshot: snap, Defects: defects}

		var message string
		if !w.JSONMode {
			message = render.RenderSnapshotDetail(snap)
			if len(defects) > 0 {
				message += "\n\nDefects\n  " + strings.Join(defects, "\n  ")
			}
		}
		w.Success(result, message)

		if len(defects) > 0 {
			w.Warn("Snapshot has %d integrity defects", len(defects))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
