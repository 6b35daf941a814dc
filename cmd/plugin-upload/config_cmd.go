package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arrival-space/arrival-tools/internal/config"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved config path and stored credentials (redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath()
			fmt.Printf("config: %s\n", path)

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			fmt.Printf("server: %s\n", cfg.Server)
			fmt.Printf("apiKey: %s\n", redactKey(cfg.APIKey))
			fmt.Println()
			return nil
		},
	}
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:8] + "…"
}
