package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"
)

// DoctorCmd provides doctor utilities for debugging histories.
type DoctorCmd struct {
	Records RecordsCmd `cmd:"" help:"Show parsed records and how each is classified."`
	Config  ConfigCmd  `cmd:"" help:"Show the effective configuration with secrets redacted."`
}

// RecordsCmd shows the parsed records of a history file.
type RecordsCmd struct {
	File     FileOrStdin `help:"Transaction history CSV (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Include  []string    `help:"Additional history files merged into the listing." short:"i"`
	Unsorted bool        `help:"Keep records in file order."`
	Verbose  bool        `help:"Dump every record field." short:"v"`
}

// Run executes the records command.
func (cmd *RecordsCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	e, err := globals.setup(ctx, "doctor records")
	if err != nil {
		return err
	}
	defer e.close()

	ldr, err := newLoader(e.cfg, cmd.Unsorted)
	if err != nil {
		return err
	}

	in, err := cmd.File.Load(e.ctx, ldr, cmd.Include...)
	if err != nil {
		return renderFailure(ctx, &cmd.File, err, "failed to read history")
	}

	classifier := e.cfg.Counterparties
	printer := repr.New(ctx.Stdout, repr.Indent("  "), repr.OmitEmpty(true))

	// Format: position kind timestamp quantity asset @ price from -> to
	for _, rec := range in.Records {
		kind := classifier.Classify(rec)
		_, _ = fmt.Fprintf(ctx.Stdout, "%-16s %-11s %s %s %s @ %s  %s -> %s\n",
			rec.Position(),
			kind.String(),
			rec.Timestamp,
			rec.Quantity,
			rec.Asset,
			rec.Price,
			rec.From,
			rec.To)

		if cmd.Verbose {
			printer.Println(rec)
		}
	}

	printInfof(ctx.Stdout, "%d records from %d file(s)", len(in.Records), len(in.Files))
	return nil
}

// ConfigCmd shows the effective configuration.
type ConfigCmd struct{}

// Run executes the config command.
func (cmd *ConfigCmd) Run(ctx *kong.Context, globals *Globals) error {
	e, err := globals.setup(ctx, "doctor config")
	if err != nil {
		return err
	}
	defer e.close()

	redacted := e.cfg.Redacted()
	repr.New(ctx.Stdout, repr.Indent("  ")).Println(redacted)
	return nil
}
