package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/taxlots/config"
	"github.com/robinvdvleuten/taxlots/output"
	"github.com/robinvdvleuten/taxlots/telemetry"
)

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Config    string `help:"Configuration file (default: taxlots.toml when present)." type:"path" env:"TAXLOTS_CONFIG"`
	LogLevel  string `help:"Log level (debug, info, warn, error); overrides the config file."`
	Telemetry bool   `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Gains  GainsCmd  `cmd:"" help:"Replay a transaction history and report realized gains."`
	Forms  FormsCmd  `cmd:"" help:"Write Form 8949 pages and Schedule D as form field JSON."`
	Lots   LotsCmd   `cmd:"" help:"Show the stored lot snapshot."`
	Serve  ServeCmd  `cmd:"" help:"Serve the report over HTTP and reload on change."`
	Doctor DoctorCmd `cmd:"" help:"Doctor utilities for debugging histories and configuration."`
}

// env is the per-command runtime built from the global flags.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	styles *output.Styles
	ctx    context.Context

	report func()
}

// setup loads the configuration and starts telemetry. Callers must defer
// env.close.
func (g *Globals) setup(kctx *kong.Context, command string) (*env, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &env{
		cfg:    cfg,
		logger: newLogger(kctx.Stderr, cfg.Level()),
		styles: output.NewStyles(kctx.Stdout),
		ctx:    context.Background(),
		report: func() {},
	}

	if g.Telemetry {
		collector := telemetry.NewTimingCollector()
		e.ctx = telemetry.WithCollector(e.ctx, collector)

		var timer telemetry.Timer
		timer, e.ctx = telemetry.StartTimer(e.ctx, command)

		styles := output.NewStyles(kctx.Stderr)
		done := false
		e.report = func() {
			if done {
				return
			}
			done = true
			timer.End()
			_, _ = fmt.Fprintln(kctx.Stderr)
			collector.Report(kctx.Stderr, styles)
		}
	}

	return e, nil
}

func (e *env) close() {
	e.report()
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
