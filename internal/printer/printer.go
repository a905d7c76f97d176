// Package printer formats CLI output.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	faint  = color.New(color.Faint)
)

// Column colors, in board order.
var columns = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgBlue, color.Bold),
	color.New(color.FgGreen, color.Bold),
}

// Stdout and Stderr are where output goes; tests may replace them.
var (
	Stdout io.Writer = color.Output
	Stderr io.Writer = color.Error
)

// Success prints a message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Stdout, msg)
}

// Info prints a plain message.
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a message in yellow with a warning prefix.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠") {
		msg = "⚠  " + msg
	}
	yellow.Fprint(Stdout, msg)
}

// Step prints a step message with emphasis.
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a title, an explanation and suggestions to stderr and
// returns an error carrying only the title.
func Error(title, explanation string, suggestions ...string) error {
	red.Fprintf(Stderr, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(Stderr, "\n%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Stderr, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Stderr, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Stderr, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}

// Raw prints a server response body verbatim to stderr under a heading.
func Raw(heading, body string) {
	faint.Fprintf(Stderr, "%s\n", heading)
	fmt.Fprintf(Stderr, "%s\n", strings.TrimRight(body, "\n"))
}

// Column renders a board column heading.
func Column(i int, label string, count int) string {
	c := bold
	if i >= 0 && i < len(columns) {
		c = columns[i]
	}
	return c.Sprint(label) + faint.Sprintf(" (%d)", count)
}

// ID renders a task id.
func ID(id string) string { return cyan.Sprint(id) }

// Dim renders secondary text.
func Dim(s string) string { return faint.Sprint(s) }

// Disable turns colors off, e.g. for NO_COLOR or piped output.
func Disable() { color.NoColor = true }

func init() {
	if os.Getenv("NO_COLOR") != "" {
		Disable()
	}
}
