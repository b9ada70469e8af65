package forms

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var personal = Personal{FirstName: "Ada", MiddleInitial: "B", LastName: "Lovelace", SSN: "123-45-6789"}

func row(term gains.Term, proceeds, cost string) gains.Row {
	return gains.Row{
		Asset:        "ETH",
		Description:  "1 ETH",
		DateAcquired: "VARIOUS",
		DateSold:     "03/01/18",
		Term:         term,
		Proceeds:     d(proceeds),
		Cost:         d(cost),
		GainOrLoss:   d(proceeds).Sub(d(cost)),
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		input          string
		dollars, cents string
		splitD, splitC string
	}{
		{"0", "0", "0.00", "0", "00"},
		{"5", "5", "5.00", "5", "00"},
		{"999.494", "999", "999.49", "999", "49"},
		{"999.994", "1,000", "999.99", "999", "99"},
		{"999.995", "1,000", "1,000.00", "1000", "00"},
		{"1234.56", "1,235", "1,234.56", "1234", "56"},
		{"-1234.56", "(1,235)", "(1,234.56)", "(1234", "56)"},
		{"-0.004", "0", "0.00", "0", "00"},
		{"-0.4", "0", "(0.40)", "(0", "40)"},
		{"1234567.891", "1,234,568", "1,234,567.89", "1234567", "89"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.dollars, Dollars(d(tt.input)))
			assert.Equal(t, tt.cents, Cents(d(tt.input)))

			dollars, cents := Split(d(tt.input))
			assert.Equal(t, tt.splitD, dollars)
			assert.Equal(t, tt.splitC, cents)

			joined, err := Join(dollars, cents)
			assert.NoError(t, err)
			assert.Equal(t, d(tt.input).Round(2).String(), joined.String())
		})
	}

	_, err := Join("12a", "00")
	assert.Error(t, err)
}

func TestBuildF8949_Batches(t *testing.T) {
	var rows []gains.Row
	for i := 0; i < 30; i++ {
		rows = append(rows, row(gains.ShortTerm, "10.01", "5"))
	}
	rows = append(rows, row(gains.LongTerm, "100", "150"))

	pages := BuildF8949(personal, rows, 0)
	assert.Equal(t, 3, len(pages))

	assert.Equal(t, 14, len(pages[0].ShortTerm.Rows))
	assert.Equal(t, 1, len(pages[0].LongTerm.Rows))
	assert.Equal(t, 14, len(pages[1].ShortTerm.Rows))
	assert.Equal(t, 0, len(pages[1].LongTerm.Rows))
	assert.Equal(t, 2, len(pages[2].ShortTerm.Rows))
	assert.Equal(t, "f8949_3.json", pages[2].Filename())

	assert.Equal(t, "140.14", pages[0].ShortTerm.Totals.Proceeds.String())
	assert.Equal(t, "70.14", pages[0].ShortTerm.Totals.GainOrLoss.String())
	assert.Equal(t, "-50", pages[0].LongTerm.Totals.GainOrLoss.String())
}

func TestBuildF8949_Empty(t *testing.T) {
	assert.Equal(t, 0, len(BuildF8949(personal, nil, 14)))
}

func TestF8949_Fields(t *testing.T) {
	pages := BuildF8949(personal, []gains.Row{
		row(gains.ShortTerm, "300", "200"),
		row(gains.ShortTerm, "450", "500"),
	}, 14)
	assert.Equal(t, 1, len(pages))

	fields := pages[0].Fields()
	assert.Equal(t, "Ada B Lovelace", fields["FullNamePage1"])
	assert.Equal(t, "123-45-6789", fields["SocialSecurityNumberPage1"])
	assert.Equal(t, true, fields["isShortTermC"])
	assert.Equal(t, false, fields["isLongTermF"])
	assert.Equal(t, "1 ETH", fields["ST1Description"])
	assert.Equal(t, "300.00", fields["ST1Proceeds"])
	assert.Equal(t, "100.00", fields["ST1GainOrLoss"])
	assert.Equal(t, "(50.00)", fields["ST2GainOrLoss"])
	assert.Equal(t, "", fields["ST2Code"])
	assert.Equal(t, "750.00", fields["STTotalProceeds"])
	assert.Equal(t, "700.00", fields["STTotalCost"])
	assert.Equal(t, "50.00", fields["STTotalGainOrLoss"])
	_, ok := fields["LTTotalProceeds"]
	assert.False(t, ok)
	_, ok = fields["ST3Description"]
	assert.False(t, ok)

	data, err := json.Marshal(pages[0])
	assert.NoError(t, err)
	var decoded map[string]any
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "50.00", decoded["STTotalGainOrLoss"])
}

func TestBuildScheduleD(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		rows     []gains.Row
		personal Personal
		line16   string
		line21   string
		line17   *bool
		line20   *bool
		line22   *bool
	}{
		{
			name:   "gains in both parts",
			rows:   []gains.Row{row(gains.ShortTerm, "200", "100"), row(gains.LongTerm, "500", "100")},
			line16: "500",
			line21: "0",
			line17: &yes,
			line20: &yes,
		},
		{
			name:     "net gain with a short-term loss",
			rows:     []gains.Row{row(gains.ShortTerm, "100", "200"), row(gains.LongTerm, "500", "100")},
			personal: Personal{QualifiedDividends: true},
			line16:   "300",
			line21:   "0",
			line17:   &no,
			line22:   &yes,
		},
		{
			name:   "loss below the limit",
			rows:   []gains.Row{row(gains.ShortTerm, "100", "1100.50")},
			line16: "-1000.5",
			line21: "1000.5",
			line22: &no,
		},
		{
			name:   "loss above the limit",
			rows:   []gains.Row{row(gains.ShortTerm, "100", "10100"), row(gains.LongTerm, "0", "50")},
			line16: "-10050",
			line21: "3000",
			line22: &no,
		},
		{
			name:   "break even",
			rows:   []gains.Row{row(gains.ShortTerm, "100", "100")},
			line16: "0",
			line21: "0",
			line22: &no,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := BuildF8949(tt.personal, tt.rows, 14)
			sd := BuildScheduleD(tt.personal, pages, DefaultLossLimit)

			assert.Equal(t, tt.line16, sd.Line16.String())
			assert.Equal(t, tt.line21, sd.Line21.String())
			assert.Equal(t, fmt.Sprint(tt.line17 != nil), fmt.Sprint(sd.Line17 != nil))
			assert.Equal(t, fmt.Sprint(tt.line20 != nil), fmt.Sprint(sd.Line20 != nil))
			assert.Equal(t, fmt.Sprint(tt.line22 != nil), fmt.Sprint(sd.Line22 != nil))
			if tt.line17 != nil {
				assert.Equal(t, *tt.line17, *sd.Line17)
			}
			if tt.line22 != nil {
				assert.Equal(t, *tt.line22, *sd.Line22)
			}
		})
	}
}

func TestScheduleD_Fields(t *testing.T) {
	pages := BuildF8949(personal, []gains.Row{
		row(gains.ShortTerm, "100", "2100"),
		row(gains.LongTerm, "5000", "4000"),
	}, 14)
	sd := BuildScheduleD(personal, pages, LossLimit("married_filing_separately"))

	fields := sd.Fields()
	assert.Equal(t, "Ada B Lovelace", fields["FullName"])
	assert.Equal(t, "(2,000.00)", fields["Line3GainOrLoss"])
	assert.Equal(t, "5,000.00", fields["Line10Proceeds"])
	assert.Equal(t, "(2,000.00)", fields["Line7"])
	assert.Equal(t, "1,000.00", fields["Line15"])
	assert.Equal(t, "(1,000.00)", fields["Line16"])
	assert.Equal(t, "1,000.00", fields["Line21"])
	assert.Equal(t, false, fields["Line22Yes"])
	assert.Equal(t, true, fields["Line22No"])
	_, ok := fields["Line17Yes"]
	assert.False(t, ok)
	assert.Equal(t, "f1040sd.json", sd.Filename())
}

func TestLossLimit(t *testing.T) {
	assert.Equal(t, "1500", LossLimit("MFS").String())
	assert.Equal(t, "3000", LossLimit("single").String())
	assert.Equal(t, "3000", LossLimit("").String())
}
