package main

import (
	"fmt"

	"github.com/guildkeep/guildkeep/internal/backup"
	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture a guild's structure into a new snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		guildID, _ := cmd.Flags().GetString("guild")
		if guildID == "" {
			return cmdErr(fmt.Errorf("--guild is required"), output.ErrValidation)
		}

		api, limiter, err := getAPI(cmd)
		if err != nil {
			return err
		}

		w.Info("Capturing structure of guild %s...", guildID)

		builder := &backup.Builder{API: api, Limiter: limiter}
		snap, err := builder.Build(cmd.Context(), guildID)
		if err != nil {
			return apiErr(fmt.Errorf("building snapshot: %w", err))
		}

		snap.ID = model.GenerateID(func(id string) bool {
			return db.SnapshotIDTaken(conn, id)
		})

		if err := db.PutSnapshot(conn, snap); err != nil {
			return cmdErr(fmt.Errorf("storing snapshot: %w", err), output.ErrGeneral)
		}

		w.Success(struct {
			ID         string `json:"id"`
			GuildID    string `json:"guild_id"`
			Roles      int    `json:"roles"`
			Categories int    `json:"categories"`
			Channels   int    `json:"channels"`
		}{
			ID:         snap.ID,
			GuildID:    guildID,
			Roles:      len(snap.Roles),
			Categories: len(snap.Categories),
			Channels:   len(snap.Channels),
		}, fmt.Sprintf("Created snapshot %s (%d roles, %d categories, %d channels)",
			snap.ID, len(snap.Roles), len(snap.Categories), len(snap.Channels)))

		return nil
	},
}

func init() {
	createCmd.Flags().StringP("guild", "g", "", "Source guild ID")
	rootCmd.AddCommand(createCmd)
}
