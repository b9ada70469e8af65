package lots

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one unconsumed acquisition of an asset. Quantity shrinks as
// disposals consume it; Asset, UnitCost and Acquired never change.
type Lot struct {
	Asset    string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Acquired time.Time // zero when the acquisition date is unknown
}

// Cost returns the cost basis of the lot's remaining quantity.
func (l Lot) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// String renders the lot as "2@10 ETH".
func (l Lot) String() string {
	return fmt.Sprintf("%s@%s %s", l.Quantity.String(), l.UnitCost.String(), l.Asset)
}

// Portion is the part of a lot consumed by a single disposal.
type Portion struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Acquired time.Time
}

// Cost returns Quantity x UnitCost.
func (p Portion) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.UnitCost)
}

// Disposal is the result of matching one disposal against the asset's lots.
// All amounts are exact; callers round when they report.
type Disposal struct {
	Asset      string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Proceeds   decimal.Decimal
	CostBasis  decimal.Decimal
	GainOrLoss decimal.Decimal
	Consumed   []Portion // in FIFO order
}

func newDisposal(asset string, quantity, unitPrice decimal.Decimal, consumed []Portion) *Disposal {
	costBasis := decimal.Zero
	for _, p := range consumed {
		costBasis = costBasis.Add(p.Cost())
	}
	proceeds := quantity.Mul(unitPrice)

	return &Disposal{
		Asset:      asset,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		Proceeds:   proceeds,
		CostBasis:  costBasis,
		GainOrLoss: proceeds.Sub(costBasis),
		Consumed:   consumed,
	}
}
