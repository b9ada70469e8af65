package cli

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table lays out rows in columns. Widths are measured on the plain cell
// text so styling can be applied after padding.
type table struct {
	headers []string
	right   []bool // right-align column
	rows    [][]string
	style   map[[2]int]func(string) string
}

func newTable(headers ...string) *table {
	return &table{
		headers: headers,
		right:   make([]bool, len(headers)),
		style:   map[[2]int]func(string) string{},
	}
}

func (t *table) alignRight(cols ...int) *table {
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// styleCell styles the cell in the last added row.
func (t *table) styleCell(col int, fn func(string) string) {
	t.style[[2]int{len(t.rows) - 1, col}] = fn
}

func (t *table) widths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func (t *table) pad(cell string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(cell, width)
	}
	return runewidth.FillRight(cell, width)
}

func (t *table) render(w io.Writer) {
	widths := t.widths()

	var b strings.Builder
	line := func(cells []string, row int) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			padded := t.pad(cell, widths[i], t.right[i])
			if i == len(cells)-1 && !t.right[i] {
				padded = cell
			}
			if fn, ok := t.style[[2]int{row, i}]; ok {
				padded = fn(padded)
			}
			b.WriteString(padded)
		}
		b.WriteByte('\n')
	}

	line(t.headers, -1)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	line(rule, -1)
	for i, row := range t.rows {
		line(row, i)
	}

	_, _ = io.WriteString(w, b.String())
}
