package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/arrival-space/arrival-tools/internal/relay"
	"github.com/arrival-space/arrival-tools/internal/term"
)

// Commands that expand to a plain page-API call and print the JSON result.
var simpleCommands = map[string]string{
	"gates":    "ArrivalSpace.gates.list()",
	"room":     "ArrivalSpace.room.info()",
	"entities": "ArrivalSpace.room.entities()",
	"plugins":  "ArrivalSpace.plugins.list()",
	"spaces":   "ArrivalSpace.spaces.list()",
	"reload":   "ArrivalSpace.room.reload()",
}

// runSpecial recognizes and runs interactive special commands. Commands are
// case-insensitive and tolerate a leading dot. Returns handled=false when the
// line should be dispatched as JavaScript instead.
func runSpecial(ctx context.Context, srv *relay.Server, line string) (handled, exit bool, err error) {
	args, perr := shellwords.Parse(line)
	if perr != nil || len(args) == 0 {
		return false, false, nil
	}

	name := strings.ToLower(strings.TrimPrefix(args[0], "."))
	args = args[1:]

	switch name {
	case "exit", "quit", "q":
		return true, true, nil

	case "help":
		printHelp()
		return true, false, nil

	case "screenshot":
		return true, false, runScreenshot(ctx, srv, args)

	case "deploy":
		return true, false, runReplDeploy(ctx, srv, args)

	case "newspace":
		title := "New Space"
		if len(args) > 0 {
			title = strings.Join(args, " ")
		}
		return true, false, evalAndPrint(ctx, srv, fmt.Sprintf("ArrivalSpace.spaces.create(%q)", title))

	case "load":
		if len(args) != 1 {
			return true, false, fmt.Errorf("usage: load <url>")
		}
		return true, false, evalAndPrint(ctx, srv, fmt.Sprintf("ArrivalSpace.room.load(%q)", args[0]))

	case "refresh":
		// Reloading the page tears down the connection, so the command has
		// no result; the disconnect is the success signal.
		_, rerr := srv.Execute(ctx, "location.reload()")
		if rerr != nil && !errors.Is(rerr, relay.ErrDisconnected) && !errors.Is(rerr, relay.ErrCommandTimeout) {
			return true, false, rerr
		}
		term.Info("page refreshing, waiting for reconnect...")
		term.Blank()
		return true, false, nil
	}

	if snippet, ok := simpleCommands[name]; ok {
		return true, false, evalAndPrint(ctx, srv, snippet)
	}
	return false, false, nil
}

func runReplDeploy(ctx context.Context, srv *relay.Server, args []string) error {
	forceNew := false
	var file string
	for _, a := range args {
		if a == "--new" || a == "-n" {
			forceNew = true
			continue
		}
		file = a
	}
	if file == "" {
		return fmt.Errorf("usage: deploy [--new] <file>")
	}

	opts := &options{deploy: file, forceNew: forceNew}
	return runDeploy(ctx, srv, opts)
}

func parseDimensions(args []string) (w, h int, err error) {
	if len(args) == 0 {
		return 0, 0, nil
	}
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("usage: screenshot [width height]")
	}
	w, err = strconv.Atoi(args[0])
	if err == nil {
		h, err = strconv.Atoi(args[1])
	}
	if err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("usage: screenshot [width height]")
	}
	return w, h, nil
}

func printHelp() {
	term.Info("special commands (leading dot optional):")
	for _, line := range []string{
		"help                      show this help",
		"gates                     list gates in the current room",
		"room                      show current room info",
		"entities                  list room entities",
		"plugins                   list deployed plugin instances",
		"spaces                    list your spaces",
		"screenshot [w h]          save a screenshot, optionally resized",
		"deploy [--new] <file>     deploy a plugin file",
		"newspace [title]          create a new space",
		"load <url>                load a space by url",
		"reload                    reload the current room",
		"refresh                   refresh the browser page",
		"exit | quit | q           leave the session",
	} {
		fmt.Println("  " + line)
	}
	term.Info("anything else is evaluated as JavaScript in the page")
	term.Blank()
}
