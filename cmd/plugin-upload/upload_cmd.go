package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arrival-space/arrival-tools/internal/term"
)

func uploadCmd() *cobra.Command {
	var (
		spaceID  string
		entityID string
		key      string
		server   string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and bind it to a space entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(key, server)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			path := args[0]

			resourceKey, err := client.UploadFile(ctx, path, func(msg string) {
				term.Dim("  %s", msg)
			})
			if err != nil {
				return err
			}
			term.Success("uploaded: %s", resourceKey)

			entity, err := client.UpsertEntity(ctx, spaceID, entityID, resourceKey, filepath.Base(path))
			if err != nil {
				// Steps 1-4 are not rolled back; the uploaded object stays
				// in storage. Accepted tradeoff for a one-shot CLI.
				return err
			}

			if entityID != "" {
				term.Success("updated entity %s", entity.ID)
			} else {
				term.Success("created entity %s", entity.ID)
			}
			term.Info("url: %s", entity.URL)
			term.Blank()
			return nil
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "target space ID (required)")
	cmd.Flags().StringVar(&entityID, "entity", "", "existing entity ID to update instead of creating")
	cmd.Flags().StringVar(&key, "key", "", "API key override")
	cmd.Flags().StringVar(&server, "server", "", "server URL override")
	cmd.MarkFlagRequired("space")

	return cmd
}
