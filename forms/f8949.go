// Package forms lays out capital gains report rows as IRS form fields.
//
// Form 8949 pages carry up to fourteen rows per part: Part I holds
// short-term rows (box C, no 1099-B) and Part II long-term rows (box F).
// Schedule D takes the part totals of every page. Both encode to the flat
// field names a PDF filler expects, for example "ST1Description" or
// "Line16".
package forms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/shopspring/decimal"
)

// DefaultRowsPerPage is the number of rows in each part of a Form 8949 page.
const DefaultRowsPerPage = 14

// Personal identifies the taxpayer on every form.
type Personal struct {
	FirstName          string `toml:"first_name" json:"first_name"`
	MiddleInitial      string `toml:"middle_initial" json:"middle_initial"`
	LastName           string `toml:"last_name" json:"last_name"`
	SSN                string `toml:"ssn" json:"ssn"`
	FilingStatus       string `toml:"filing_status" json:"filing_status"`
	QualifiedDividends bool   `toml:"qualified_dividends" json:"qualified_dividends"`
}

// FullName joins the non-empty name parts.
func (p Personal) FullName() string {
	return strings.Join(strings.Fields(p.FirstName+" "+p.MiddleInitial+" "+p.LastName), " ")
}

// Part is one half of a Form 8949 page.
type Part struct {
	Rows   []gains.Row
	Totals gains.Amounts // sums of the rounded row values
}

func newPart(rows []gains.Row) Part {
	p := Part{Rows: rows}
	for _, row := range rows {
		p.Totals.Proceeds = p.Totals.Proceeds.Add(row.Proceeds)
		p.Totals.Cost = p.Totals.Cost.Add(row.Cost)
		p.Totals.GainOrLoss = p.Totals.GainOrLoss.Add(row.GainOrLoss)
	}
	return p
}

// F8949 is a single Form 8949 page.
type F8949 struct {
	Page      int
	Personal  Personal
	ShortTerm Part
	LongTerm  Part
}

// BuildF8949 batches rows into pages. Short-term and long-term rows fill
// their own parts independently, so a page may hold rows in only one part.
// A pageSize of zero or less uses DefaultRowsPerPage.
func BuildF8949(personal Personal, rows []gains.Row, pageSize int) []*F8949 {
	if pageSize <= 0 {
		pageSize = DefaultRowsPerPage
	}

	var short, long []gains.Row
	for _, row := range rows {
		if row.Term == gains.LongTerm {
			long = append(long, row)
		} else {
			short = append(short, row)
		}
	}

	var pages []*F8949
	for i := 0; i*pageSize < len(short) || i*pageSize < len(long); i++ {
		pages = append(pages, &F8949{
			Page:      i + 1,
			Personal:  personal,
			ShortTerm: newPart(chunk(short, i, pageSize)),
			LongTerm:  newPart(chunk(long, i, pageSize)),
		})
	}
	return pages
}

func chunk(rows []gains.Row, page, size int) []gains.Row {
	start := page * size
	if start >= len(rows) {
		return nil
	}
	end := min(start+size, len(rows))
	return rows[start:end]
}

// Fields returns the page as flat form fields.
func (f *F8949) Fields() map[string]any {
	fields := map[string]any{
		"FullNamePage1":             f.Personal.FullName(),
		"SocialSecurityNumberPage1": f.Personal.SSN,
		"FullNamePage2":             f.Personal.FullName(),
		"SocialSecurityNumberPage2": f.Personal.SSN,
		"isShortTermA":              false,
		"isShortTermB":              false,
		"isShortTermC":              len(f.ShortTerm.Rows) > 0,
		"isLongTermD":               false,
		"isLongTermE":               false,
		"isLongTermF":               len(f.LongTerm.Rows) > 0,
	}
	partFields(fields, "ST", f.ShortTerm)
	partFields(fields, "LT", f.LongTerm)
	return fields
}

func partFields(fields map[string]any, prefix string, part Part) {
	if len(part.Rows) == 0 {
		return
	}
	for i, row := range part.Rows {
		key := fmt.Sprintf("%s%d", prefix, i+1)
		fields[key+"Description"] = row.Description
		fields[key+"DateAcquired"] = row.DateAcquired
		fields[key+"DateSold"] = row.DateSold
		fields[key+"Proceeds"] = Cents(row.Proceeds)
		fields[key+"Cost"] = Cents(row.Cost)
		fields[key+"Code"] = ""
		fields[key+"Adjustment"] = ""
		fields[key+"GainOrLoss"] = Cents(row.GainOrLoss)
	}
	fields[prefix+"TotalProceeds"] = Cents(part.Totals.Proceeds)
	fields[prefix+"TotalCost"] = Cents(part.Totals.Cost)
	fields[prefix+"TotalAdjustment"] = ""
	fields[prefix+"TotalGainOrLoss"] = Cents(part.Totals.GainOrLoss)
}

// MarshalJSON encodes the page's fields with sorted keys.
func (f *F8949) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Fields())
}

// Filename returns the conventional output name, e.g. "f8949_1.json".
func (f *F8949) Filename() string {
	return fmt.Sprintf("f8949_%d.json", f.Page)
}

func sumParts(pages []*F8949, part func(*F8949) Part) gains.Amounts {
	total := gains.Amounts{Proceeds: decimal.Zero, Cost: decimal.Zero, GainOrLoss: decimal.Zero}
	for _, p := range pages {
		t := part(p).Totals
		total.Proceeds = total.Proceeds.Add(t.Proceeds)
		total.Cost = total.Cost.Add(t.Cost)
		total.GainOrLoss = total.GainOrLoss.Add(t.GainOrLoss)
	}
	return total
}
