package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/policyrt/cli/reader"
	"github.com/justapithecus/policyrt/cli/render"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect returns a deep view of a single entity.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a single entity (session)",
		Subcommands: []*cli.Command{
			inspectSessionCommand(),
		},
	}
}

func inspectSessionCommand() *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Inspect a session by id",
		ArgsUsage: "<session-id>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectSessionAction,
	}
}

func inspectSessionAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("session-id required", 1)
	}
	sessionID := c.Args().First()

	resp, err := reader.InspectSession(defaultManager, sessionID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect failed: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_session", resp)
	}

	return r.Render(resp)
}
