package main

import (
	"fmt"

	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/guildkeep/guildkeep/internal/render"
	"github.com/spf13/cobra"
)

type listResult struct {
	Snapshots []db.SnapshotMeta `json:"snapshots"`
	Total     int               `json:"total"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored snapshots",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		guildID, _ := cmd.Flags().GetString("guild")

		metas, err := db.ListSnapshots(conn, guildID)
		if err != nil {
			return cmdErr(fmt.Errorf("listing snapshots: %w", err), output.ErrGeneral)
		}

		if metas == nil {
			metas = []db.SnapshotMeta{}
		}
		result := listResult{Snapshots: metas, Total: len(metas)}

		var message string
		if !w.JSONMode {
			message = render.RenderSnapshotTable(metas)
		}
		w.Success(result, message)

		return nil
	},
}

func init() {
	listCmd.Flags().StringP("guild", "g", "", "Only snapshots taken from this guild")
	rootCmd.AddCommand(listCmd)
}
