// plugin-upload is a one-shot deploy client for the Arrival.Space REST API:
// OAuth PKCE login, presigned file upload with async job polling, and space
// entity upsert.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arrival-space/arrival-tools/internal/api"
	"github.com/arrival-space/arrival-tools/internal/config"
	"github.com/arrival-space/arrival-tools/internal/term"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		term.Error("%v", err)
		term.Blank()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "plugin-upload",
		Short:         "Upload files and bind them to Arrival.Space entities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			} else {
				slog.SetLogLoggerLevel(slog.LevelWarn)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(initCmd())
	cmd.AddCommand(uploadCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(configCmd())

	return cmd
}

// loadClient builds an API client from stored config, honoring per-command
// --key/--server overrides.
func loadClient(keyOverride, serverOverride string) (*api.Client, error) {
	server := serverOverride
	key := keyOverride

	if server == "" || key == "" {
		cfg, err := config.Load(config.ResolvePath())
		if err != nil {
			return nil, err
		}
		if server == "" {
			server = cfg.Server
		}
		if key == "" {
			key = cfg.APIKey
		}
	}

	return api.New(server, key), nil
}
