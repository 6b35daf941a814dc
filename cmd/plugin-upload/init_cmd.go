package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/arrival-space/arrival-tools/internal/api"
	"github.com/arrival-space/arrival-tools/internal/auth"
	"github.com/arrival-space/arrival-tools/internal/config"
	"github.com/arrival-space/arrival-tools/internal/term"
)

const defaultServer = "https://arrival.space"

func initCmd() *cobra.Command {
	var (
		key        string
		server     string
		useKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Log in and store credentials for the other commands",
		Long: `Obtains an API key via browser-based OAuth login (PKCE) and stores it in
the local config. Supply --key to skip the browser flow and store a raw key
directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), key, server, useKeyring)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "store this API key instead of logging in")
	cmd.Flags().StringVar(&server, "server", "", "server base URL (default "+defaultServer+")")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "store the API key in the OS keychain instead of the config file")

	return cmd
}

func runInit(ctx context.Context, key, server string, useKeyring bool) error {
	if server == "" {
		if err := promptServer(&server); err != nil {
			return err
		}
	}

	if key != "" {
		// Manual override path: verify opportunistically, store regardless.
		// A flaky network must not block an operator who knows their key.
		if _, err := api.New(server, key).ListSpaces(ctx); err != nil {
			term.Warn("could not verify the key against %s: %v", server, err)
			term.Warn("storing it anyway")
		} else {
			term.Success("key verified")
		}
	} else {
		term.Info("opening your browser to authorize...")
		flow := &auth.Flow{ServerURL: server}
		token, err := flow.Login(ctx)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		key = token
		term.Success("login complete")
	}

	path := config.ResolvePath()
	if err := config.Save(path, &config.Config{Server: server, APIKey: key}, useKeyring); err != nil {
		return err
	}

	term.Success("credentials saved to %s", path)
	if useKeyring {
		term.Info("api key stored in the OS keychain")
	}
	term.Blank()
	return nil
}

func promptServer(server *string) error {
	*server = defaultServer
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Server URL").
			Description("Base URL of your Arrival.Space instance").
			Value(server),
	)).WithShowHelp(true).Run()
}
