package cmd

import (
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/policyrt/cli/session"
	"github.com/justapithecus/policyrt/fixture"
)

// newTestApp builds a CLI app wired to a fresh fixture-backed session
// manager. ExitErrHandler is suppressed so errors are returned instead of
// calling os.Exit.
func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	script, err := fixture.BuildScript(
		fixture.Event{Line: "[decoder/d/0] decoded"},
		fixture.Event{Output: map[string]any{"a": int64(1)}},
	)
	if err != nil {
		t.Fatalf("BuildScript: %v", err)
	}

	SetManager(session.NewManager(session.Config{
		Builder:       fixture.NewBuilder(script),
		NewController: fixture.NewController,
	}))

	app := cli.NewApp()
	app.Commands = []*cli.Command{
		SessionCommand(),
		ListCommand(),
		InspectCommand(),
		StatsCommand(),
		VersionCommand("test-commit"),
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {}
	return app
}

func TestSessionBuild_Success(t *testing.T) {
	app := newTestApp(t)

	err := app.Run([]string{"policyrt", "session", "build", "session-1", "policy/ingress/0", "--format", "json"})
	if err != nil {
		t.Fatalf("session build: %v", err)
	}
}

func TestSessionBuild_MissingArgs(t *testing.T) {
	app := newTestApp(t)

	err := app.Run([]string{"policyrt", "session", "build", "session-1"})
	if err == nil {
		t.Fatal("expected error for missing policy-id argument")
	}
}

func TestSessionDestroy_UnknownSession(t *testing.T) {
	app := newTestApp(t)

	err := app.Run([]string{"policyrt", "session", "destroy", "nonexistent"})
	if err == nil {
		t.Fatal("expected error destroying an unknown session")
	}
	if !strings.Contains(err.Error(), "destroy failed") {
		t.Errorf("error should mention destroy failed, got: %v", err)
	}
}

func TestSessionBuildThenRender(t *testing.T) {
	app := newTestApp(t)

	if err := app.Run([]string{"policyrt", "session", "build", "session-1", "policy/ingress/0", "--format", "json"}); err != nil {
		t.Fatalf("session build: %v", err)
	}
	if err := app.Run([]string{"policyrt", "session", "render", "session-1", "--format", "json"}); err != nil {
		t.Fatalf("session render: %v", err)
	}
}

func TestListSessions_AfterBuild(t *testing.T) {
	app := newTestApp(t)

	if err := app.Run([]string{"policyrt", "session", "build", "session-1", "policy/ingress/0", "--format", "json"}); err != nil {
		t.Fatalf("session build: %v", err)
	}
	if err := app.Run([]string{"policyrt", "list", "sessions", "--format", "json"}); err != nil {
		t.Fatalf("list sessions: %v", err)
	}
}

func TestInspectSession_UnknownReturnsError(t *testing.T) {
	app := newTestApp(t)

	err := app.Run([]string{"policyrt", "inspect", "session", "nonexistent", "--format", "json"})
	if err == nil {
		t.Fatal("expected error inspecting an unknown session")
	}
}

func TestVersionCommand(t *testing.T) {
	app := newTestApp(t)

	if err := app.Run([]string{"policyrt", "version", "--format", "json"}); err != nil {
		t.Fatalf("version: %v", err)
	}
}

func TestVersionCommand_RejectsTUI(t *testing.T) {
	app := newTestApp(t)

	err := app.Run([]string{"policyrt", "version", "--tui"})
	if err == nil {
		t.Fatal("expected error for --tui on version command")
	}
}
