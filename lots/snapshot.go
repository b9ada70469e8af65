package lots

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// dateLayout is the encoding of Record.Date.
const dateLayout = "2006-01-02"

// Record is the persisted form of one open lot.
type Record struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Date     string          `json:"date,omitempty"`
}

// Snapshot is the persisted ledger state: asset -> open lots, oldest first.
type Snapshot map[string][]Record

// Snapshot captures the ledger's open lots.
func (l *Ledger) Snapshot() Snapshot {
	snap := make(Snapshot, len(l.queues))
	for asset, q := range l.queues {
		records := make([]Record, 0, q.Len())
		for _, lot := range q.Lots() {
			rec := Record{Quantity: lot.Quantity, Price: lot.UnitCost}
			if !lot.Acquired.IsZero() {
				rec.Date = lot.Acquired.Format(dateLayout)
			}
			records = append(records, rec)
		}
		snap[asset] = records
	}
	return snap
}

// FromSnapshot builds a ledger from a snapshot. Each record is acquired in
// order, so invalid records fail with the same errors as Acquire.
func FromSnapshot(snap Snapshot) (*Ledger, error) {
	l := New()
	for _, asset := range snap.Assets() {
		for i, rec := range snap[asset] {
			var acquired time.Time
			if rec.Date != "" {
				t, err := time.Parse(dateLayout, rec.Date)
				if err != nil {
					return nil, fmt.Errorf("%s lot %d: %w", asset, i+1,
						NewInvalidInputError(asset, "date", rec.Date, "expected YYYY-MM-DD"))
				}
				acquired = t
			}
			if err := l.AcquireAt(asset, rec.Quantity, rec.Price, acquired); err != nil {
				return nil, fmt.Errorf("%s lot %d: %w", asset, i+1, err)
			}
		}
	}
	return l, nil
}

// Assets returns the snapshot's asset symbols in sorted order.
func (s Snapshot) Assets() []string {
	assets := maps.Keys(s)
	slices.Sort(assets)
	return assets
}

// Total returns the summed quantity held for asset.
func (s Snapshot) Total(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range s[asset] {
		total = total.Add(rec.Quantity)
	}
	return total
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for asset, records := range s {
		out[asset] = append([]Record(nil), records...)
	}
	return out
}

// DecodeSnapshot reads a JSON snapshot. Quantities and prices may be JSON
// numbers or strings.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	snap := Snapshot{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// EncodeSnapshot writes the snapshot as indented JSON with sorted keys.
func EncodeSnapshot(w io.Writer, snap Snapshot) error {
	if snap == nil {
		snap = Snapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
