package main

import (
	"errors"
	"fmt"

	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [snapshot-id]",
	Short:   "Delete a stored snapshot",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		if err := model.ValidateID(args[0]); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		if err := db.DeleteSnapshot(conn, args[0]); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("snapshot %s not found", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("deleting snapshot: %w", err), output.ErrGeneral)
		}

		w.Success(struct {
			ID      string `json:"id"`
			Deleted bool   `json:"deleted"`
		}{ID: args[0], Deleted: true}, fmt.Sprintf("Deleted snapshot %s", args[0]))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
