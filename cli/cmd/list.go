package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/policyrt/cli/reader"
	"github.com/justapithecus/policyrt/cli/render"
)

// listWarningThreshold is the number of sessions above which we warn about terminal noise.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// ListCommand returns the list command with subcommands.
// List returns thin slices (not inspect-level detail).
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entities (sessions)",
		Subcommands: []*cli.Command{
			listSessionsCommand(),
		},
	}
}

func listSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:   "sessions",
		Usage:  "List sessions",
		Flags:  ReadOnlyFlags(),
		Action: listSessionsAction,
	}
}

func listSessionsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", 1)
	}

	results := reader.ListSessions(defaultManager)

	if len(results) > listWarningThreshold && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d sessions.\n\n", len(results))
	}

	return r.Render(results)
}
