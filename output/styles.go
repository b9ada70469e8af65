// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
)

// Styles renders styled strings for a single writer. Styling is dropped
// automatically when the writer is not a terminal.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w),
	}
}

// Asset returns an asset symbol in yellow.
func (s *Styles) Asset(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		String()
}

// Amount returns a money or quantity value in magenta.
func (s *Styles) Amount(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("5")).
		String()
}

// Gain colors text by the sign of value: green for gains, red for losses.
func (s *Styles) Gain(text string, value decimal.Decimal) string {
	switch value.Sign() {
	case 1:
		return s.output.String(text).Foreground(s.output.Color("2")).String()
	case -1:
		return s.output.String(text).Foreground(s.output.Color("1")).String()
	default:
		return text
	}
}

// Keyword returns bold text.
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).
		Bold().
		String()
}

// Dim returns faint text for secondary information.
func (s *Styles) Dim(text string) string {
	return s.output.String(text).
		Faint().
		String()
}

// Warning returns yellow, bold text.
func (s *Styles) Warning(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		Bold().
		String()
}
