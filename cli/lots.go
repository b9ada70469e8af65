package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
)

type LotsCmd struct {
	Key  string `help:"Snapshot key (overrides store.key)."`
	JSON bool   `help:"Write the snapshot as JSON."`
}

func (cmd *LotsCmd) Run(ctx *kong.Context, globals *Globals) error {
	e, err := globals.setup(ctx, "lots")
	if err != nil {
		return err
	}
	defer e.close()

	key := e.cfg.Store.Key
	if cmd.Key != "" {
		key = cmd.Key
	}

	st, closeStore, err := openStore(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	snap, err := st.Load(e.ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		printError(ctx.Stderr, fmt.Sprintf("no snapshot stored as %q", key))
		return NewCommandError(1)
	}
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(ctx.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	if len(snap.Assets()) == 0 {
		printInfof(ctx.Stdout, "Snapshot %s holds no lots", pathStyle.Render(key))
		return nil
	}

	printSnapshot(ctx, e, snap)
	return nil
}

func printSnapshot(ctx *kong.Context, e *env, snap lots.Snapshot) {
	tbl := newTable("Asset", "Lot", "Quantity", "Price", "Acquired").alignRight(1, 2, 3)
	for _, asset := range snap.Assets() {
		for i, rec := range snap[asset] {
			acquired := rec.Date
			if acquired == "" {
				acquired = "unknown"
			}
			tbl.add(asset, fmt.Sprint(i+1), rec.Quantity.String(), rec.Price.String(), acquired)
			tbl.styleCell(0, e.styles.Asset)
			tbl.styleCell(2, e.styles.Amount)
		}
	}
	tbl.render(ctx.Stdout)
	_, _ = fmt.Fprintln(ctx.Stdout)

	for _, asset := range snap.Assets() {
		printInfof(ctx.Stdout, "%s %s in %d lot(s)", snap.Total(asset).String(), e.styles.Asset(asset), len(snap[asset]))
	}
}
