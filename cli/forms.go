package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
)

type FormsCmd struct {
	File        FileOrStdin `help:"Transaction history CSV (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	ReplayFlags `embed:""`

	Out   string `help:"Output directory (overrides forms.output_dir)." short:"o" type:"path"`
	Force bool   `help:"Overwrite existing form files without asking." short:"f"`
}

// formFile is one output file.
type formFile struct {
	name string
	form any
}

func (cmd *FormsCmd) Run(ctx *kong.Context, globals *Globals) error {
	e, err := globals.setup(ctx, "forms")
	if err != nil {
		return err
	}
	defer e.close()

	res, err := replay(ctx, e, &cmd.File, &cmd.ReplayFlags, false)
	if err != nil {
		return err
	}

	outDir := e.cfg.Forms.OutputDir
	if cmd.Out != "" {
		outDir = cmd.Out
	}

	var files []formFile
	for _, page := range res.F8949 {
		files = append(files, formFile{page.Filename(), page})
	}
	files = append(files, formFile{res.ScheduleD.Filename(), res.ScheduleD})

	existing := 0
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(outDir, f.name)); err == nil {
			existing++
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to access %s: %w", f.name, err)
		}
	}

	if existing > 0 && !cmd.Force {
		confirmed, err := promptYesNo(fmt.Sprintf("Overwrite %d existing form file(s) in %s?", existing, outDir))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed {
			printError(ctx.Stderr, fmt.Sprintf("%d form file(s) already exist in %s (use --force to overwrite)", existing, outDir))
			return NewCommandError(1)
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, f := range files {
		data, err := json.MarshalIndent(f.form, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		path := filepath.Join(outDir, f.name)
		if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		printInfof(ctx.Stdout, "Wrote %s", pathStyle.Render(path))
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("%d Form 8949 page(s) and Schedule D written", len(res.F8949)))
	return nil
}
