package main

import (
	"errors"
	"fmt"

	"github.com/guildkeep/guildkeep/internal/backup"
	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/guildkeep/guildkeep/internal/render"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [snapshot-id]",
	Short: "Restore a snapshot into a guild",
	Long: `Restore a snapshot's roles, categories, and channels into the
destination guild. The restore is additive: existing entities in the
destination are never modified or deleted, and loading the same
snapshot twice creates duplicates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		if err := model.ValidateID(args[0]); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		guildID, _ := cmd.Flags().GetString("guild")
		if guildID == "" {
			return cmdErr(fmt.Errorf("--guild is required"), output.ErrValidation)
		}
		yes, _ := cmd.Flags().GetBool("yes")

		snap, err := db.GetSnapshot(conn, args[0])
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("snapshot %s not found", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("fetching snapshot: %w", err), output.ErrGeneral)
		}

		if !w.JSONMode && !yes {
			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf(
							"Restore snapshot %s (%d roles, %d categories, %d channels) into guild %s? Existing entities are kept; duplicates are possible.",
							snap.ID, len(snap.Roles), len(snap.Categories), len(snap.Channels), guildID)).
						Affirmative("Yes, restore").
						Negative("Cancel").
						Value(&confirmed),
				),
			)

			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}

			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		api, limiter, err := getAPI(cmd)
		if err != nil {
			return err
		}

		w.Info("Restoring snapshot %s into guild %s...", snap.ID, guildID)

		engine := &backup.Engine{API: api, Limiter: limiter}
		report, err := engine.Restore(cmd.Context(), snap, guildID)
		if err != nil {
			return apiErr(fmt.Errorf("restoring snapshot: %w", err))
		}

		var message string
		if !w.JSONMode {
			message = render.RenderReport(report)
		}
		w.Success(report, message)

		return nil
	},
}

func init() {
	loadCmd.Flags().StringP("guild", "g", "", "Destination guild ID")
	loadCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(loadCmd)
}
