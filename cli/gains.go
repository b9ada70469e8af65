package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/robinvdvleuten/taxlots/output"
)

type GainsCmd struct {
	File        FileOrStdin `help:"Transaction history CSV (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	ReplayFlags `embed:""`

	JSON bool `help:"Write the report as JSON."`
	Save bool `help:"Save the leftover lots as the snapshot for the next run."`
}

func (cmd *GainsCmd) Run(ctx *kong.Context, globals *Globals) error {
	e, err := globals.setup(ctx, "gains")
	if err != nil {
		return err
	}
	defer e.close()

	res, err := replay(ctx, e, &cmd.File, &cmd.ReplayFlags, cmd.Save)
	if err != nil {
		return err
	}

	if cmd.JSON {
		return res.Report.WriteJSON(ctx.Stdout)
	}

	printReport(ctx.Stdout, e.styles, res.Report)

	if cmd.Save {
		printSuccess(ctx.Stdout, fmt.Sprintf("Saved leftover lots as %s", pathStyle.Render(e.keyFor(&cmd.ReplayFlags))))
	}
	return nil
}

func (e *env) keyFor(flags *ReplayFlags) string {
	if flags.Key != "" {
		return flags.Key
	}
	return e.cfg.Store.Key
}

// printReport writes the rows, totals and record counts.
func printReport(w io.Writer, styles *output.Styles, report *gains.Report) {
	if len(report.Rows) == 0 {
		printInfof(w, "No disposals")
	} else {
		tbl := newTable("Line", "Description", "Acquired", "Sold", "Term", "Proceeds", "Cost", "Gain/Loss").
			alignRight(0, 5, 6, 7)
		for _, row := range report.Rows {
			tbl.add(
				strconv.Itoa(row.Line),
				row.Description,
				row.DateAcquired,
				row.DateSold,
				string(row.Term),
				row.Proceeds.StringFixed(2),
				row.Cost.StringFixed(2),
				row.GainOrLoss.StringFixed(2),
			)
			gain := row.GainOrLoss
			tbl.styleCell(7, func(s string) string { return styles.Gain(s, gain) })
		}
		tbl.render(w)
		_, _ = fmt.Fprintln(w)
	}

	totals := newTable("Term", "Proceeds", "Cost", "Gain/Loss").alignRight(1, 2, 3)
	for _, t := range []struct {
		name    string
		amounts gains.Amounts
	}{
		{"short-term", report.Totals.ShortTerm},
		{"long-term", report.Totals.LongTerm},
		{"total", report.Totals.All},
	} {
		totals.add(t.name, t.amounts.Proceeds.StringFixed(2), t.amounts.Cost.StringFixed(2), t.amounts.GainOrLoss.StringFixed(2))
		gain := t.amounts.GainOrLoss
		totals.styleCell(3, func(s string) string { return styles.Gain(s, gain) })
	}
	totals.render(w)
	_, _ = fmt.Fprintln(w)

	s := report.Stats
	printInfof(w, "%d records: %d acquisitions, %d disposals, %d transfers, %d skipped",
		s.Records, s.Acquisitions, s.Disposals, s.Transfers, s.OutsideYear+s.ZeroQuantity+s.Invalid)
}
