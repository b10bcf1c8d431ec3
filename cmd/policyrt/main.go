// Package main provides the policyrt CLI entrypoint.
//
// The CLI is the only execution entrypoint. `session build`/`session
// ingest`/`session render`/`session destroy` mutate state; every other
// command is read-only.
//
// Usage:
//
//	policyrt <command> [subcommand] [options]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/policyrt/adapter"
	"github.com/justapithecus/policyrt/adapter/redis"
	"github.com/justapithecus/policyrt/adapter/webhook"
	"github.com/justapithecus/policyrt/builder"
	"github.com/justapithecus/policyrt/cli/cmd"
	"github.com/justapithecus/policyrt/cli/session"
	"github.com/justapithecus/policyrt/cliconfig"
	"github.com/justapithecus/policyrt/fixture"
	"github.com/justapithecus/policyrt/log"
	"github.com/justapithecus/policyrt/refpipeline"
	"github.com/justapithecus/policyrt/runtimepolicy"
	"github.com/justapithecus/policyrt/types"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "policyrt",
		Usage:          "Runtime policy execution engine CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a policyrt YAML config file",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			cmd.SessionCommand(),
			cmd.InspectCommand(),
			cmd.StatsCommand(),
			cmd.ListCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// setup wires the session manager (and, transitively, the builder, logger,
// and optional lifecycle adapter) before any command action runs.
func setup(c *cli.Context) error {
	cfg := &cliconfig.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := cliconfig.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	var logger *log.Logger
	if cfg.Policy.ID != "" || cfg.Policy.Session != "" {
		logger = log.NewLogger(types.PolicyMeta{
			PolicyID:  types.PolicyID(cfg.Policy.ID),
			SessionID: cfg.Policy.Session,
		})
	}

	b, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	var newController runtimepolicy.NewControllerFunc
	switch b.(type) {
	case *fixture.Builder:
		newController = fixture.NewController
	default:
		newController = refpipeline.NewController
	}

	adp, err := newAdapter(cfg)
	if err != nil {
		return err
	}

	cmd.SetManager(session.NewManager(session.Config{
		Builder:       b,
		NewController: newController,
		Logger:        logger,
		Adapter:       adp,
	}))
	return nil
}

// newBuilder resolves the catalog-backed builder.Builder when the loaded
// config sets a catalog file; otherwise falls back to a deterministic fixture
// script so the CLI is usable without any external configuration.
func newBuilder(cfg *cliconfig.Config) (runtimepolicy.Builder, error) {
	if cfg.Catalog == "" {
		script, err := fixture.BuildScript(
			fixture.Event{Line: "[decoder/d/0] decoded"},
			fixture.Event{Output: map[string]any{"status": "ok"}},
		)
		if err != nil {
			return nil, fmt.Errorf("building default fixture script: %w", err)
		}
		return fixture.NewBuilder(script), nil
	}

	return builder.Load(cfg.Catalog, defaultRegistry())
}

// defaultRegistry names the fixed set of asset chains a catalog file may
// select among. New chains are added here, in Go, never in the catalog
// itself.
func defaultRegistry() builder.Registry {
	return builder.Registry{
		"passthrough": {
			Name: "passthrough",
			Assets: []refpipeline.Asset{
				refpipeline.NewDecodeAsset("decoder/d/0"),
			},
		},
		"decode_filter_enrich": {
			Name: "decode_filter_enrich",
			Assets: []refpipeline.Asset{
				refpipeline.NewDecodeAsset("decoder/d/0"),
				refpipeline.NewConditionFilterAsset("filter/f/0", func(doc types.Document) bool {
					m, ok := doc.Value().(map[string]any)
					return ok && m != nil
				}),
				refpipeline.NewEnrichAsset("enricher/e/0", func(v any) any {
					m, _ := v.(map[string]any)
					if m == nil {
						m = map[string]any{}
					}
					m["enriched"] = true
					return m
				}),
			},
		},
	}
}

// newAdapter constructs the lifecycle event adapter named by cfg.Adapter.Type.
// An empty Type disables lifecycle publishing entirely.
func newAdapter(cfg *cliconfig.Config) (adapter.Adapter, error) {
	switch cfg.Adapter.Type {
	case "":
		return nil, nil
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
		})
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
		})
	default:
		return nil, fmt.Errorf("unsupported adapter type: %q (must be redis or webhook)", cfg.Adapter.Type)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
