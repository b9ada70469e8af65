package gains

import (
	"encoding/json"
	"io"
	"time"

	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/shopspring/decimal"
)

// Term is the holding period of a report row.
type Term string

const (
	ShortTerm Term = "short"
	LongTerm  Term = "long"
)

// Money values are reported with this many decimal places.
const moneyPlaces = 2

// Dates on report rows use the form layout.
const formDate = "01/02/06"

// various is written for DateAcquired when consumed lots have different or
// unknown acquisition dates.
const various = "VARIOUS"

// Row is one form line. Money values are rounded; quantities are exact.
type Row struct {
	Asset        string          `json:"asset"`
	Quantity     decimal.Decimal `json:"quantity"`
	Description  string          `json:"description"`
	DateAcquired string          `json:"date_acquired"`
	DateSold     string          `json:"date_sold"`
	Term         Term            `json:"term"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	Cost         decimal.Decimal `json:"cost"`
	GainOrLoss   decimal.Decimal `json:"gain_or_loss"`
	Line         int             `json:"line"`
}

// Amounts is a proceeds/cost/gain triple.
type Amounts struct {
	Proceeds   decimal.Decimal `json:"proceeds"`
	Cost       decimal.Decimal `json:"cost"`
	GainOrLoss decimal.Decimal `json:"gain_or_loss"`
}

func (a Amounts) add(proceeds, cost decimal.Decimal) Amounts {
	return Amounts{
		Proceeds:   a.Proceeds.Add(proceeds),
		Cost:       a.Cost.Add(cost),
		GainOrLoss: a.GainOrLoss.Add(proceeds.Sub(cost)),
	}
}

func (a Amounts) round() Amounts {
	return Amounts{
		Proceeds:   roundMoney(a.Proceeds),
		Cost:       roundMoney(a.Cost),
		GainOrLoss: roundMoney(a.GainOrLoss),
	}
}

// Totals holds the report totals per holding period.
type Totals struct {
	ShortTerm Amounts `json:"short_term"`
	LongTerm  Amounts `json:"long_term"`
	All       Amounts `json:"all"`
}

// Stats counts records by outcome.
type Stats struct {
	Records      int `json:"records"`
	Acquisitions int `json:"acquisitions"`
	Disposals    int `json:"disposals"`
	Transfers    int `json:"transfers"`
	OutsideYear  int `json:"outside_year"`
	ZeroQuantity int `json:"zero_quantity"`
	Invalid      int `json:"invalid"`
}

// Report is the outcome of a replay. It holds nothing but values derived from
// the input, so identical inputs encode to identical bytes.
type Report struct {
	TaxYear  int             `json:"tax_year,omitempty"`
	Rows     []Row           `json:"rows"`
	Totals   Totals          `json:"totals"`
	Starting lots.Snapshot   `json:"starting"`
	Leftover lots.Snapshot   `json:"leftover"`
	Skipped  []SkippedRecord `json:"skipped,omitempty"`
	Stats    Stats           `json:"stats"`
}

// ShortTermRows returns the rows held for one year or less.
func (r *Report) ShortTermRows() []Row {
	return r.rowsFor(ShortTerm)
}

// LongTermRows returns the rows held for more than one year.
func (r *Report) LongTermRows() []Row {
	return r.rowsFor(LongTerm)
}

func (r *Report) rowsFor(term Term) []Row {
	var rows []Row
	for _, row := range r.Rows {
		if row.Term == term {
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteJSON encodes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// roundMoney rounds half away from zero to cents.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// termOf returns LongTerm when sold more than one year after acquired.
// Lots without an acquisition date are short-term.
func termOf(acquired, sold time.Time) Term {
	if acquired.IsZero() {
		return ShortTerm
	}
	if sold.After(acquired.AddDate(1, 0, 0)) {
		return LongTerm
	}
	return ShortTerm
}

// rowBuilder accumulates the portions of one disposal that share a term.
type rowBuilder struct {
	quantity decimal.Decimal
	proceeds decimal.Decimal
	cost     decimal.Decimal
	acquired time.Time
	mixed    bool
	count    int
}

func (b *rowBuilder) add(p lots.Portion, unitPrice decimal.Decimal) {
	if b.count == 0 {
		b.acquired = p.Acquired
	} else if !p.Acquired.Equal(b.acquired) {
		b.mixed = true
	}
	b.count++
	b.quantity = b.quantity.Add(p.Quantity)
	b.proceeds = b.proceeds.Add(p.Quantity.Mul(unitPrice))
	b.cost = b.cost.Add(p.Cost())
}

func (b *rowBuilder) dateAcquired() string {
	if b.mixed || b.acquired.IsZero() {
		return various
	}
	return b.acquired.Format(formDate)
}

// splitDisposal turns a disposal into one row per holding period, short-term
// first.
func splitDisposal(d *lots.Disposal, sold time.Time, line int) ([]Row, []Amounts) {
	builders := map[Term]*rowBuilder{}
	for _, p := range d.Consumed {
		term := termOf(p.Acquired, sold)
		b, ok := builders[term]
		if !ok {
			b = &rowBuilder{quantity: decimal.Zero, proceeds: decimal.Zero, cost: decimal.Zero}
			builders[term] = b
		}
		b.add(p, d.UnitPrice)
	}

	var rows []Row
	var exact []Amounts
	for _, term := range []Term{ShortTerm, LongTerm} {
		b, ok := builders[term]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Asset:        d.Asset,
			Quantity:     b.quantity,
			Description:  b.quantity.Round(3).String() + " " + d.Asset,
			DateAcquired: b.dateAcquired(),
			DateSold:     sold.Format(formDate),
			Term:         term,
			Proceeds:     roundMoney(b.proceeds),
			Cost:         roundMoney(b.cost),
			GainOrLoss:   roundMoney(b.proceeds.Sub(b.cost)),
			Line:         line,
		})
		exact = append(exact, Amounts{}.add(b.proceeds, b.cost))
	}
	return rows, exact
}
