// Package term renders operator-facing terminal output: colored status
// glyphs, console forwarding, and result blocks. Library packages log through
// slog instead; only the CLIs print here.
package term

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Info prints an informational line with the ℹ glyph.
func Info(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", infoStyle.Render("ℹ"), fmt.Sprintf(format, args...))
}

// Success prints a success line with the ✔ glyph.
func Success(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", successStyle.Render("✔"), fmt.Sprintf(format, args...))
}

// Warn prints a warning line with the ⚠ glyph.
func Warn(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", warnStyle.Render("⚠"), fmt.Sprintf(format, args...))
}

// Error prints an error line with the ✖ glyph to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✖"), fmt.Sprintf(format, args...))
}

// Dim prints a de-emphasized line (progress, forwarded debug output).
func Dim(format string, args ...interface{}) {
	fmt.Println(dimStyle.Render(fmt.Sprintf(format, args...)))
}

// Blank prints the trailing blank line that closes every command's output
// block.
func Blank() {
	fmt.Println()
}

// Console renders a forwarded browser console message with a glyph matching
// its level.
func Console(level string, args []interface{}) {
	line := formatConsoleArgs(args)
	switch level {
	case "error":
		Error("console: %s", line)
	case "warn":
		Warn("console: %s", line)
	case "debug":
		Dim("console: %s", line)
	default:
		Info("console: %s", line)
	}
}

// Result pretty-prints a JSON command result: strings print bare, everything
// else as indented JSON.
func Result(raw json.RawMessage) {
	if len(raw) == 0 {
		Dim("(no result)")
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		fmt.Println(s)
		return
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(pretty))
}

func formatConsoleArgs(args []interface{}) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		switch v := a.(type) {
		case string:
			out += v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				out += fmt.Sprintf("%v", v)
				continue
			}
			out += string(data)
		}
	}
	return out
}
