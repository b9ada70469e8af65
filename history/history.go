// Package history reads chronological transaction ledgers.
//
// A ledger is a CSV file with a header row. Every row describes one movement
// of an asset between two counterparties:
//
//	timestamp,asset,quantity,price,from,to,value_in,value_out,fee
//	180105-142300,ETH,2,1000.50,ex-coinbase,self,,,
//
// Quantity and price are kept as the raw strings found in the file; they
// are parsed by the replay that consumes the record so that a malformed value
// only invalidates its own row.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Required columns of a ledger file.
var requiredColumns = []string{"timestamp", "asset", "quantity", "price", "from", "to"}

// Record is one ledger row with its fields kept verbatim.
type Record struct {
	Filename  string
	Line      int // 1-based line in the source file
	Timestamp string
	Asset     string
	Quantity  string
	Price     string
	From      string
	To        string
	ValueIn   string
	ValueOut  string
	Fee       string
}

// Position returns "filename:line".
func (r Record) Position() string {
	return fmt.Sprintf("%s:%d", r.Filename, r.Line)
}

// MissingColumnError is returned when the header lacks a required column.
type MissingColumnError struct {
	Filename string
	Column   string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.Filename, e.Column)
}

// Read parses a ledger CSV. Column names are matched case-insensitively and
// unknown columns are ignored.
func Read(r io.Reader, filename string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", filename, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, &MissingColumnError{Filename: filename, Column: name}
		}
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		line, _ := cr.FieldPos(0)

		if isBlank(row) {
			continue
		}

		records = append(records, Record{
			Filename:  filename,
			Line:      line,
			Timestamp: field(row, "timestamp"),
			Asset:     field(row, "asset"),
			Quantity:  field(row, "quantity"),
			Price:     field(row, "price"),
			From:      field(row, "from"),
			To:        field(row, "to"),
			ValueIn:   field(row, "value_in"),
			ValueOut:  field(row, "value_out"),
			Fee:       field(row, "fee"),
		})
	}

	return records, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
