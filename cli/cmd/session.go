package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/policyrt/cli/reader"
	"github.com/justapithecus/policyrt/cli/render"
	"github.com/justapithecus/policyrt/types"
)

// SessionCommand returns the session command with its build/ingest/render/
// destroy subcommands. Unlike list/inspect/stats, these mutate state —
// they are not read-only and never support --tui.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Build, feed, and render runtime policy sessions",
		Subcommands: []*cli.Command{
			sessionBuildCommand(),
			sessionIngestCommand(),
			sessionRenderCommand(),
			sessionDestroyCommand(),
		},
	}
}

func sessionBuildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Build a new session for a policy id",
		ArgsUsage: "<session-id> <policy-id>",
		Flags:     []cli.Flag{FormatFlag, NoColorFlag},
		Action:    sessionBuildAction,
	}
}

func sessionBuildAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: session build <session-id> <policy-id>", 1)
	}
	sessionID := c.Args().Get(0)
	policyID := types.PolicyID(c.Args().Get(1))

	if _, err := defaultManager.Create(c.Context, sessionID, policyID); err != nil {
		return cli.Exit(fmt.Sprintf("build failed: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	resp, err := reader.InspectSession(defaultManager, sessionID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("build succeeded but inspect failed: %v", err), 1)
	}
	return r.Render(resp)
}

func sessionIngestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest a JSON document into a built session",
		ArgsUsage: "<session-id> [file]",
		Flags:     []cli.Flag{FormatFlag, NoColorFlag},
		Action:    sessionIngestAction,
	}
}

func sessionIngestAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: session ingest <session-id> [file]", 1)
	}
	sessionID := c.Args().Get(0)

	var src io.Reader = os.Stdin
	if c.NArg() >= 2 {
		f, err := os.Open(c.Args().Get(1))
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot open %s: %v", c.Args().Get(1), err), 1)
		}
		defer f.Close()
		src = f
	}

	var doc any
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return cli.Exit(fmt.Sprintf("invalid JSON document: %v", err), 1)
	}

	p, ok := defaultManager.Get(sessionID)
	if !ok {
		return cli.Exit(fmt.Sprintf("session %q not found", sessionID), 1)
	}
	if err := p.Ingest(c.Context, types.NewEvent(doc)); err != nil {
		return cli.Exit(fmt.Sprintf("ingest rejected: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(map[string]any{"session_id": sessionID, "ingested": true})
}

func sessionRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a session's combined output+trace artifact",
		ArgsUsage: "<session-id>",
		Flags: append([]cli.Flag{FormatFlag, NoColorFlag},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Debug mode: output_only, output_and_traces, output_and_traces_with_details",
				Value: "output_only",
			},
		),
		Action: sessionRenderAction,
	}
}

func sessionRenderAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: session render <session-id>", 1)
	}
	sessionID := c.Args().Get(0)

	mode, ok := types.ParseDebugMode(c.String("mode"))
	if !ok {
		return cli.Exit(fmt.Sprintf("invalid --mode %q", c.String("mode")), 1)
	}

	resp, err := reader.RenderSession(defaultManager, sessionID, mode)
	if err != nil {
		return cli.Exit(fmt.Sprintf("render failed: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(resp)
}

func sessionDestroyCommand() *cli.Command {
	return &cli.Command{
		Name:      "destroy",
		Usage:     "Close and remove a session",
		ArgsUsage: "<session-id>",
		Flags:     []cli.Flag{FormatFlag, NoColorFlag},
		Action:    sessionDestroyAction,
	}
}

func sessionDestroyAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: session destroy <session-id>", 1)
	}
	sessionID := c.Args().Get(0)

	if err := defaultManager.Destroy(c.Context, sessionID); err != nil {
		return cli.Exit(fmt.Sprintf("destroy failed: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(map[string]any{"session_id": sessionID, "destroyed": true})
}
