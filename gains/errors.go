package gains

import (
	"fmt"

	"github.com/robinvdvleuten/taxlots/history"
)

// RecordError ties a replay failure to the ledger record that caused it.
type RecordError struct {
	Record history.Record
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Record.Position(), e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// SkippedRecord lists a record dropped by WithSkipInvalid.
type SkippedRecord struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Reason   string `json:"reason"`
}
