package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/arrival-space/arrival-tools/internal/relay"
	"github.com/arrival-space/arrival-tools/internal/term"
	"github.com/arrival-space/arrival-tools/pkg/protocol"
)

const prompt = "» "

// runREPL reads operator lines until exit or EOF. The prompt is armed only
// while a browser session is attached; after a disconnect it re-arms on the
// next info message.
func runREPL(ctx context.Context, srv *relay.Server, ready <-chan protocol.InfoMessage) {
	term.Info(`type "help" for commands, "exit" to quit`)
	term.Blank()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Print(prompt)
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return

		case newInfo := <-ready:
			term.Success("browser connected: %s @ %s", newInfo.User, newInfo.Room)
			term.Blank()
			fmt.Print(prompt)

		case line, ok := <-lines:
			if !ok {
				return
			}
			if exit := handleLine(ctx, srv, line); exit {
				return
			}
			if srv.Connected() {
				fmt.Print(prompt)
			}
			// Not connected: stay quiet until the next info message.
		}
	}
}

// handleLine processes one operator line. Returns true on exit.
func handleLine(ctx context.Context, srv *relay.Server, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	handled, exit, err := runSpecial(ctx, srv, line)
	if exit {
		return true
	}
	if handled {
		if err != nil {
			printCommandError(err)
		}
		return false
	}

	// Everything else is JavaScript, dispatched verbatim.
	result, err := srv.Execute(ctx, line)
	if err != nil {
		printCommandError(err)
		return false
	}
	term.Result(result)
	term.Blank()
	return false
}

func printCommandError(err error) {
	switch {
	case errors.Is(err, relay.ErrNotConnected):
		term.Error("not connected: open the Arrival.Space page first")
	case errors.Is(err, relay.ErrCommandTimeout):
		term.Error("timed out waiting for the browser (30s)")
	case errors.Is(err, relay.ErrDisconnected):
		term.Error("browser disconnected before the result arrived")
	default:
		term.Error("%v", err)
	}
	term.Blank()
}
