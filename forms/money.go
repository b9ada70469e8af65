package forms

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dollars formats d as whole dollars with thousands separators. Negative
// values are parenthesized: -1234.56 becomes "(1,235)".
func Dollars(d decimal.Decimal) string {
	return parenthesize(d, groupThousands(d.Abs().Round(0).StringFixed(0)))
}

// Cents formats d with two decimals: -1234.56 becomes "(1,234.56)".
func Cents(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	return parenthesize(d, groupThousands(whole)+"."+frac)
}

// Split formats d for forms with separate dollar and cent boxes. A negative
// value opens the parenthesis in the dollar box and closes it in the cent
// box: -1234.56 becomes "(1234" and "56)".
func Split(d decimal.Decimal) (dollars, cents string) {
	dollars, cents, _ = strings.Cut(d.Abs().StringFixed(2), ".")
	if d.Round(2).IsNegative() {
		dollars = "(" + dollars
		cents = cents + ")"
	}
	return dollars, cents
}

// Join parses the dollar and cent boxes written by Split.
func Join(dollars, cents string) (decimal.Decimal, error) {
	dollars = strings.TrimSpace(dollars)
	cents = strings.TrimSpace(cents)

	negative := strings.HasPrefix(dollars, "(")
	dollars = strings.TrimPrefix(dollars, "(")
	cents = strings.TrimSuffix(cents, ")")
	dollars = strings.ReplaceAll(dollars, ",", "")
	if dollars == "" {
		dollars = "0"
	}
	if cents == "" {
		cents = "0"
	}

	d, err := decimal.NewFromString(dollars + "." + cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid form amount %q.%q", dollars, cents)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func parenthesize(d decimal.Decimal, s string) string {
	if strings.Trim(s, "0.,") == "" {
		return s
	}
	if d.IsNegative() {
		return "(" + s + ")"
	}
	return s
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
