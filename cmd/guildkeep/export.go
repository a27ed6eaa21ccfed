package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/guildkeep/guildkeep/internal/db"
	"github.com/guildkeep/guildkeep/internal/model"
	"github.com/guildkeep/guildkeep/internal/output"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [snapshot-id]",
	Short: "Export a snapshot to a portable JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		if err := model.ValidateID(args[0]); err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		filePath, _ := cmd.Flags().GetString("output")

		snap, err := db.GetSnapshot(conn, args[0])
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("snapshot %s not found", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("fetching snapshot: %w", err), output.ErrGeneral)
		}

		export := model.ExportData{
			Version:    model.ExportVersion,
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
			Snapshot:   snap,
		}

		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return cmdErr(fmt.Errorf("encoding export: %w", err), output.ErrGeneral)
		}
		data = append(data, '\n')

		if filePath == "" {
			fmt.Fprint(w.Stdout, string(data))
			return nil
		}

		if err := os.WriteFile(filePath, data, 0o644); err != nil {
			return cmdErr(fmt.Errorf("writing file: %w", err), output.ErrGeneral)
		}

		w.Success(struct {
			ID   string `json:"id"`
			File string `json:"file"`
		}{ID: snap.ID, File: filePath}, fmt.Sprintf("Exported snapshot %s to %s", snap.ID, filePath))

		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
