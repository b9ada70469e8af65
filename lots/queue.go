package lots

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Queue holds the open lots of one asset in acquisition order, oldest first.
// Lots are consumed from the front and appended at the back.
type Queue struct {
	lots  []*Lot
	head  int
	total decimal.Decimal
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{total: decimal.Zero}
}

// Len returns the number of open lots.
func (q *Queue) Len() int {
	return len(q.lots) - q.head
}

// Total returns the summed quantity of all open lots.
func (q *Queue) Total() decimal.Decimal {
	return q.total
}

// Lots returns a copy of the open lots, oldest first.
func (q *Queue) Lots() []Lot {
	out := make([]Lot, 0, q.Len())
	for _, l := range q.lots[q.head:] {
		out = append(out, *l)
	}
	return out
}

func (q *Queue) push(l *Lot) {
	q.lots = append(q.lots, l)
	q.total = q.total.Add(l.Quantity)
}

func (q *Queue) front() *Lot {
	return q.lots[q.head]
}

func (q *Queue) popFront() {
	l := q.lots[q.head]
	q.total = q.total.Sub(l.Quantity)
	q.lots[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 16 && q.head*2 >= len(q.lots) {
		q.lots = append([]*Lot(nil), q.lots[q.head:]...)
		q.head = 0
	}
}

// take removes amount from the front lot, which must hold more than amount.
func (q *Queue) take(amount decimal.Decimal) {
	l := q.lots[q.head]
	l.Quantity = l.Quantity.Sub(amount)
	q.total = q.total.Sub(amount)
}

// consume removes quantity from the front of the queue and returns the
// consumed portions. The caller has checked that Total() >= quantity.
func (q *Queue) consume(quantity decimal.Decimal) []Portion {
	var portions []Portion
	remaining := quantity

	for !remaining.IsZero() {
		l := q.front()

		if l.Quantity.GreaterThan(remaining) {
			// sell off part of the lot
			portions = append(portions, Portion{Quantity: remaining, UnitCost: l.UnitCost, Acquired: l.Acquired})
			q.take(remaining)
			break
		}

		// sell off the entire lot
		portions = append(portions, Portion{Quantity: l.Quantity, UnitCost: l.UnitCost, Acquired: l.Acquired})
		remaining = remaining.Sub(l.Quantity)
		q.popFront()
	}

	return portions
}

// String renders the queue as "2@10, 3@20".
func (q *Queue) String() string {
	var buf strings.Builder
	for i, l := range q.lots[q.head:] {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(l.Quantity.String())
		buf.WriteByte('@')
		buf.WriteString(l.UnitCost.String())
	}
	return buf.String()
}
