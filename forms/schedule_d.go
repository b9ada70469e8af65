package forms

import (
	"encoding/json"
	"strings"

	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/shopspring/decimal"
)

// Capital loss deduction limits for line 21.
var (
	DefaultLossLimit         = decimal.NewFromInt(3000)
	MarriedSeparateLossLimit = decimal.NewFromInt(1500)
)

// LossLimit returns the line 21 limit for a filing status.
func LossLimit(filingStatus string) decimal.Decimal {
	switch strings.ToLower(strings.TrimSpace(filingStatus)) {
	case "married_filing_separately", "married-filing-separately", "mfs":
		return MarriedSeparateLossLimit
	default:
		return DefaultLossLimit
	}
}

// ScheduleD holds the Schedule D lines derived from Form 8949 totals.
// Worksheet lines (18, 19) are not computed.
type ScheduleD struct {
	Personal Personal

	Line3  gains.Amounts // short-term, box C
	Line10 gains.Amounts // long-term, box F
	Line7  decimal.Decimal
	Line15 decimal.Decimal
	Line16 decimal.Decimal
	Line21 decimal.Decimal

	// Yes/no answers; nil when the line does not apply.
	Line17 *bool
	Line20 *bool
	Line22 *bool
}

// BuildScheduleD sums the part totals of pages. A net loss on line 16 is
// deductible on line 21 up to lossLimit.
func BuildScheduleD(personal Personal, pages []*F8949, lossLimit decimal.Decimal) *ScheduleD {
	sd := &ScheduleD{
		Personal: personal,
		Line3:    sumParts(pages, func(p *F8949) Part { return p.ShortTerm }),
		Line10:   sumParts(pages, func(p *F8949) Part { return p.LongTerm }),
		Line21:   decimal.Zero,
	}
	sd.Line7 = sd.Line3.GainOrLoss
	sd.Line15 = sd.Line10.GainOrLoss
	sd.Line16 = sd.Line7.Add(sd.Line15)

	yes, no := true, false
	dividends := personal.QualifiedDividends

	switch sd.Line16.Sign() {
	case 1:
		if sd.Line7.IsPositive() && sd.Line15.IsPositive() {
			sd.Line17 = &yes
			// Lines 18 and 19 are zero without the worksheets.
			sd.Line20 = &yes
		} else {
			sd.Line17 = &no
			sd.Line22 = &dividends
		}
	case -1:
		loss := sd.Line16.Abs()
		if loss.GreaterThan(lossLimit) {
			loss = lossLimit
		}
		sd.Line21 = loss
		sd.Line22 = &dividends
	default:
		sd.Line22 = &dividends
	}

	return sd
}

// Fields returns the form as flat form fields.
func (sd *ScheduleD) Fields() map[string]any {
	fields := map[string]any{
		"FullName":             sd.Personal.FullName(),
		"SocialSecurityNumber": sd.Personal.SSN,
		"Line3Proceeds":        Cents(sd.Line3.Proceeds),
		"Line3Cost":            Cents(sd.Line3.Cost),
		"Line3GainOrLoss":      Cents(sd.Line3.GainOrLoss),
		"Line10Proceeds":       Cents(sd.Line10.Proceeds),
		"Line10Cost":           Cents(sd.Line10.Cost),
		"Line10GainOrLoss":     Cents(sd.Line10.GainOrLoss),
		"Line7":                Cents(sd.Line7),
		"Line15":               Cents(sd.Line15),
		"Line16":               Cents(sd.Line16),
		"Line21":               Cents(sd.Line21),
	}
	yesNo(fields, "Line17", sd.Line17)
	yesNo(fields, "Line20", sd.Line20)
	yesNo(fields, "Line22", sd.Line22)
	return fields
}

func yesNo(fields map[string]any, line string, answer *bool) {
	if answer == nil {
		return
	}
	fields[line+"Yes"] = *answer
	fields[line+"No"] = !*answer
}

// MarshalJSON encodes the form's fields with sorted keys.
func (sd *ScheduleD) MarshalJSON() ([]byte, error) {
	return json.Marshal(sd.Fields())
}

// Filename is the conventional output name.
func (sd *ScheduleD) Filename() string {
	return "f1040sd.json"
}
