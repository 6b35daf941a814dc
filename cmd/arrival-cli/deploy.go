package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arrival-space/arrival-tools/internal/deploy"
	"github.com/arrival-space/arrival-tools/internal/relay"
	"github.com/arrival-space/arrival-tools/internal/term"
)

// runDeploy deploys opts.deploy once, then keeps redeploying on change when
// --watch is set.
func runDeploy(ctx context.Context, srv *relay.Server, opts *options) error {
	d := &deploy.Deployer{Exec: srv}

	if err := deployFile(ctx, d, opts.deploy, opts.forceNew); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	watcher, err := deploy.NewWatcher(opts.deploy, func(path string) {
		// Watched redeploys never force a new instance: the point of watch
		// mode is hot-reloading the one just deployed.
		if err := deployFile(ctx, d, path, false); err != nil {
			term.Error("redeploy failed: %v", err)
			term.Blank()
		}
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", opts.deploy, err)
	}
	defer watcher.Stop()

	term.Info("watching %s, Ctrl-C to stop", opts.deploy)
	term.Blank()
	<-ctx.Done()
	return nil
}

func deployFile(ctx context.Context, d *deploy.Deployer, path string, forceNew bool) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	result, err := d.Deploy(ctx, path, string(code), forceNew)
	if err != nil {
		return err
	}

	switch result.Action {
	case "reloaded":
		term.Success("reloaded %d instance(s)", result.Count)
	default:
		term.Success("created instance %s", result.ID)
		if result.URL != "" {
			term.Info("url: %s", result.URL)
		}
	}
	term.Blank()
	return nil
}
