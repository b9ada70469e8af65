// Package lots implements FIFO tax-lot accounting.
//
// A Ledger keeps one Queue of open lots per asset. Acquisitions append a lot
// to the back of the queue; disposals consume lots from the front, splitting
// the last lot touched when it holds more than the remaining quantity. Every
// disposal yields a Disposal with exact proceeds, cost basis and gain or
// loss. Amounts are shopspring decimals and are never rounded here.
//
// Example usage:
//
//	l := lots.New()
//	_ = l.Acquire("ETH", decimal.NewFromInt(2), decimal.NewFromInt(10))
//	_ = l.Acquire("ETH", decimal.NewFromInt(3), decimal.NewFromInt(20))
//
//	d, err := l.Dispose("ETH", decimal.NewFromInt(4), decimal.NewFromInt(15))
//	if errors.Is(err, lots.ErrInsufficientLots) {
//	    // over-disposal, ledger untouched
//	}
//	fmt.Println(d.Proceeds, d.CostBasis, d.GainOrLoss) // 60 60 0
//
// A Ledger is not safe for concurrent use. Disposals must be applied in
// chronological order because FIFO matching depends on queue order.
package lots

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Ledger maps asset symbols to their open lot queues.
type Ledger struct {
	queues map[string]*Queue
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		queues: make(map[string]*Queue),
	}
}

// Acquire appends a lot of quantity units at unitCost to the asset's queue.
func (l *Ledger) Acquire(asset string, quantity, unitCost decimal.Decimal) error {
	return l.AcquireAt(asset, quantity, unitCost, time.Time{})
}

// AcquireAt is Acquire with a known acquisition time.
func (l *Ledger) AcquireAt(asset string, quantity, unitCost decimal.Decimal, acquired time.Time) error {
	if err := validateAsset(asset); err != nil {
		return err
	}
	if !quantity.IsPositive() {
		return NewInvalidInputError(asset, "quantity", quantity.String(), "acquired quantity must be positive")
	}
	if unitCost.IsNegative() {
		return NewInvalidInputError(asset, "cost", unitCost.String(), "unit cost must not be negative")
	}

	q, ok := l.queues[asset]
	if !ok {
		q = NewQueue()
		l.queues[asset] = q
	}
	q.push(&Lot{
		Asset:    asset,
		Quantity: quantity,
		UnitCost: unitCost,
		Acquired: acquired,
	})

	return nil
}

// Dispose consumes quantity units of asset from its oldest lots and returns
// the resulting Disposal. When the queue holds fewer units than requested an
// *InsufficientLotsError is returned and the ledger is left as it was.
func (l *Ledger) Dispose(asset string, quantity, unitPrice decimal.Decimal) (*Disposal, error) {
	if err := validateAsset(asset); err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		return nil, NewInvalidInputError(asset, "quantity", quantity.String(), "disposed quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, NewInvalidInputError(asset, "price", unitPrice.String(), "unit price must not be negative")
	}

	q, ok := l.queues[asset]
	if !ok {
		return nil, &InsufficientLotsError{
			Asset:     asset,
			Requested: quantity,
			Available: decimal.Zero,
			Unknown:   true,
		}
	}
	if q.Total().LessThan(quantity) {
		return nil, &InsufficientLotsError{
			Asset:     asset,
			Requested: quantity,
			Available: q.Total(),
		}
	}

	consumed := q.consume(quantity)
	if q.Len() == 0 {
		delete(l.queues, asset)
	}

	return newDisposal(asset, quantity, unitPrice, consumed), nil
}

// Holdings returns the total open quantity of asset.
func (l *Ledger) Holdings(asset string) decimal.Decimal {
	if q, ok := l.queues[asset]; ok {
		return q.Total()
	}
	return decimal.Zero
}

// Lots returns a copy of the asset's open lots, oldest first.
func (l *Ledger) Lots(asset string) []Lot {
	if q, ok := l.queues[asset]; ok {
		return q.Lots()
	}
	return nil
}

// Assets returns the symbols with open lots in sorted order.
func (l *Ledger) Assets() []string {
	assets := maps.Keys(l.queues)
	slices.Sort(assets)
	return assets
}

// String renders per-asset totals, e.g. "[ETH 3] [BTC 0.5]" in sorted order.
func (l *Ledger) String() string {
	var buf strings.Builder
	for i, asset := range l.Assets() {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteByte('[')
		buf.WriteString(asset)
		buf.WriteByte(' ')
		buf.WriteString(l.queues[asset].Total().String())
		buf.WriteByte(']')
	}
	return buf.String()
}

func validateAsset(asset string) error {
	if strings.TrimSpace(asset) == "" {
		return NewInvalidInputError("", "asset", asset, "asset symbol is required")
	}
	return nil
}
