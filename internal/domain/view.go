package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Display precision, matching the original viewer.
const (
	PriceDigits = 6
	QtyDigits   = 4
	ValueDigits = 2
)

// Cell is one side of a depth row: a ranked level with its notional value
// and the nearest-to-traded-price marker.
type Cell struct {
	Price   decimal.Decimal
	Qty     decimal.Decimal
	Value   decimal.Decimal
	Nearest bool
}

// Row pairs the ask and bid cells at the same quantity rank. Either side
// may be nil when that side ran out of selected levels.
type Row struct {
	Ask *Cell
	Bid *Cell
}

// DepthView is the published, immutable snapshot consumed by readers.
// It is only ever replaced by reference, never mutated in place.
type DepthView struct {
	Rows      []Row
	Price     string
	Direction Direction
	UpdatedAt time.Time
}

// EqualRows compares the ranked rows of two views structurally. It is the
// cheap change test the aggregator uses to decide whether to republish.
func (v *DepthView) EqualRows(o *DepthView) bool {
	if o == nil {
		return false
	}
	if len(v.Rows) != len(o.Rows) {
		return false
	}
	for i := range v.Rows {
		if !cellEqual(v.Rows[i].Ask, o.Rows[i].Ask) {
			return false
		}
		if !cellEqual(v.Rows[i].Bid, o.Rows[i].Bid) {
			return false
		}
	}
	return true
}

func cellEqual(a, b *Cell) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Nearest == b.Nearest &&
		a.Price.Equal(b.Price) &&
		a.Qty.Equal(b.Qty)
}

// Metrics are full-book aggregates, independent of the top-N selection.
type Metrics struct {
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	Spread    decimal.Decimal
	SpreadPct decimal.Decimal
	Imbalance float64
	Age       time.Duration
}

// Totals are the summed price×qty notionals per side over the full book.
type Totals struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// SupportResistance carries the strongest resting levels per side,
// ordered by quantity descending.
type SupportResistance struct {
	Supports    []Level
	Resistances []Level
}
