package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/policyrt/cli/reader"
	"github.com/justapithecus/policyrt/cli/render"
)

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (sessions)",
		Subcommands: []*cli.Command{
			statsSessionCommand(),
			statsAllCommand(),
		},
	}
}

func statsSessionCommand() *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Show statistics for one session",
		ArgsUsage: "<session-id>",
		Flags:     TUIReadOnlyFlags(),
		Action:    statsSessionAction,
	}
}

func statsSessionAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("session-id required", 1)
	}
	sessionID := c.Args().First()

	snap, err := reader.StatsSession(defaultManager, sessionID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("stats failed: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_session", snap)
	}

	return r.Render(snap)
}

func statsAllCommand() *cli.Command {
	return &cli.Command{
		Name:   "all",
		Usage:  "Show statistics for every session",
		Flags:  ReadOnlyFlags(),
		Action: statsAllAction,
	}
}

func statsAllAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for stats all", 1)
	}

	return r.Render(reader.StatsAll(defaultManager))
}
