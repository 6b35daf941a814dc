// arrival-cli is a local WebSocket relay for the Arrival.Space browser
// client: the operator's terminal sends JavaScript (or special commands) to
// the connected page and receives results and forwarded console output.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arrival-space/arrival-tools/internal/relay"
	"github.com/arrival-space/arrival-tools/internal/term"
	"github.com/arrival-space/arrival-tools/pkg/protocol"
)

type options struct {
	port     int
	eval     string
	file     string
	deploy   string
	forceNew bool
	watch    bool
	verbose  bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "arrival-cli",
		Short: "Command relay for a connected Arrival.Space browser session",
		Long: `arrival-cli runs a local WebSocket server that the Arrival.Space browser
client connects to. Commands typed in the terminal are executed in the page
context; results and console output come back to the terminal.

Examples:
  arrival-cli                         # interactive session on port 9222
  arrival-cli -e "ArrivalSpace.room.info()"
  arrival-cli -f snippet.js
  arrival-cli -d plugin.js --watch    # deploy, then redeploy on file change`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(&opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 9222, "relay listen port")
	cmd.Flags().StringVarP(&opts.eval, "eval", "e", "", "evaluate code and exit")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "evaluate a file and exit")
	cmd.Flags().StringVarP(&opts.deploy, "deploy", "d", "", "deploy a plugin file and exit")
	cmd.Flags().BoolVarP(&opts.forceNew, "new", "n", false, "always create a new instance instead of hot-reloading")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "with --deploy: redeploy on file change")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func run(opts *options) error {
	if opts.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	oneShot := opts.eval != "" || opts.file != "" || opts.deploy != ""

	srv := relay.NewServer()
	ready := make(chan protocol.InfoMessage, 1)
	wireCallbacks(srv, opts, ready)

	if err := srv.Start(opts.port); err != nil {
		term.Error("%v", err)
		term.Info("is another arrival-cli running? try another port with -p")
		term.Blank()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	term.Info("relay listening on ws://127.0.0.1:%d", opts.port)
	term.Info("open your Arrival.Space page with the CLI client enabled to connect")
	term.Blank()

	// The session is usable only once the browser has sent its info message;
	// neither the prompt nor a one-shot command may run before that.
	var info protocol.InfoMessage
	select {
	case info = <-ready:
		term.Success("browser connected: %s @ %s", info.User, info.Room)
		term.Blank()
	case <-ctx.Done():
		return nil
	}

	if oneShot {
		if err := runOneShot(ctx, srv, opts); err != nil {
			term.Error("%v", err)
			term.Blank()
			os.Exit(1)
		}
		return nil
	}

	runREPL(ctx, srv, ready)
	return nil
}

// wireCallbacks installs every server callback for the selected mode. All
// assignments must land before Start: once a browser connection is live its
// goroutine reads these fields without synchronization.
func wireCallbacks(srv *relay.Server, opts *options, ready chan<- protocol.InfoMessage) {
	srv.OnReady = func(info protocol.InfoMessage) {
		select {
		case ready <- info:
		default:
		}
	}
	srv.OnConsole = term.Console
	srv.OnConsoleDropped = func(n int64) {
		term.Warn("console flood: dropped %d message(s)", n)
	}

	oneShot := opts.eval != "" || opts.file != "" || opts.deploy != ""
	if oneShot && !opts.watch {
		srv.OnDisconnect = func() {
			term.Error("browser disconnected")
			term.Blank()
			os.Exit(1)
		}
		return
	}
	srv.OnDisconnect = func() {
		term.Blank()
		term.Warn("browser disconnected, waiting for reconnect...")
	}
}

func runOneShot(ctx context.Context, srv *relay.Server, opts *options) error {
	switch {
	case opts.deploy != "":
		return runDeploy(ctx, srv, opts)

	case opts.file != "":
		code, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", opts.file, err)
		}
		return evalAndPrint(ctx, srv, string(code))

	default:
		return evalAndPrint(ctx, srv, opts.eval)
	}
}

func evalAndPrint(ctx context.Context, srv *relay.Server, code string) error {
	result, err := srv.Execute(ctx, code)
	if err != nil {
		return err
	}
	term.Result(result)
	term.Blank()
	return nil
}
