package cli

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTable(t *testing.T) {
	tbl := newTable("Asset", "Quantity", "Note").alignRight(1)
	tbl.add("ETH", "1.5", "ok")
	tbl.add("BTC", "0.00012", "ünïcode")
	tbl.styleCell(2, func(s string) string { return "[" + s + "]" })

	var b strings.Builder
	tbl.render(&b)

	assert.Equal(t, strings.Join([]string{
		"Asset  Quantity  Note",
		"─────  ────────  ───────",
		"ETH         1.5  ok",
		"BTC     0.00012  [ünïcode]",
		"",
	}, "\n"), b.String())
}
