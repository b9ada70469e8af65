package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrOutOfOrder is returned when a record is dated before its predecessor.
var ErrOutOfOrder = errors.New("records out of chronological order")

// Accepted timestamp layouts, tried in order. Compact layouts are the ones
// produced by the exchange export scripts.
var timeLayouts = []string{
	"060102-150405",
	"060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses a record timestamp. Timestamps without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Time parses the record's timestamp.
func (r Record) Time() (time.Time, error) {
	return ParseTime(r.Timestamp)
}

// Sort orders records chronologically. The sort is stable so records that
// share a timestamp keep their file order; unparsable timestamps sort last.
func Sort(records []Record) {
	type keyed struct {
		t  time.Time
		ok bool
	}
	keys := make([]keyed, len(records))
	for i, r := range records {
		t, err := r.Time()
		keys[i] = keyed{t: t, ok: err == nil}
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		return ka.t.Before(kb.t)
	})

	sorted := make([]Record, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}
