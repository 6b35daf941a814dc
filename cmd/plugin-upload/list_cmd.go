package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arrival-space/arrival-tools/internal/term"
)

func listCmd() *cobra.Command {
	var (
		spaceID string
		key     string
		server  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the entities of a space",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient(key, server)
			if err != nil {
				return err
			}

			entities, err := client.ListEntities(cmd.Context(), spaceID)
			if err != nil {
				return err
			}

			if len(entities) == 0 {
				term.Info("space %s has no entities", spaceID)
				term.Blank()
				return nil
			}

			for _, e := range entities {
				fmt.Printf("  %-24s  %-30s  %s\n", e.ID, e.Name, e.URL)
			}
			term.Blank()
			return nil
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "space ID (required)")
	cmd.Flags().StringVar(&key, "key", "", "API key override")
	cmd.Flags().StringVar(&server, "server", "", "server URL override")
	cmd.MarkFlagRequired("space")

	return cmd
}
