package engine

import (
	"sort"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/domain"
	"github.com/shopspring/decimal"
)

// TopByQty selects the n levels with the greatest quantity. Tie-break
// policy: among equal quantities the lower price wins. The input is first
// ordered by price ascending, then stably sorted by quantity descending,
// so the result is deterministic for any input order.
func TopByQty(levels []domain.Level, n int) []domain.Level {
	if n <= 0 || len(levels) == 0 {
		return nil
	}
	out := make([]domain.Level, len(levels))
	copy(out, levels)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Qty.GreaterThan(out[j].Qty)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// nearestIndex finds the index of the level whose price is closest to
// cur. Strict less-than comparison: on an exact distance tie the first
// (lowest) index wins. Returns -1 for an empty slice.
func nearestIndex(levels []domain.Level, cur decimal.Decimal) int {
	if len(levels) == 0 {
		return -1
	}
	best := 0
	bestDist := cur.Sub(levels[0].Price).Abs()
	for i := 1; i < len(levels); i++ {
		d := cur.Sub(levels[i].Price).Abs()
		if d.LessThan(bestDist) {
			bestDist = d
			best = i
		}
	}
	return best
}

// BuildView assembles the ranked, annotated depth view from copies of the
// book sides and the price trace. Pure; runs outside the state lock.
func BuildView(bids, asks []domain.Level, price, prev string, topN int, updatedAt time.Time) *domain.DepthView {
	topAsks := TopByQty(asks, topN)
	topBids := TopByQty(bids, topN)

	nearestAsk, nearestBid := -1, -1
	if price != "" {
		if cur, err := decimal.NewFromString(price); err == nil {
			nearestAsk = nearestIndex(topAsks, cur)
			nearestBid = nearestIndex(topBids, cur)
		}
	}

	count := len(topAsks)
	if len(topBids) > count {
		count = len(topBids)
	}

	rows := make([]domain.Row, count)
	for i := 0; i < count; i++ {
		if i < len(topAsks) {
			rows[i].Ask = makeCell(topAsks[i], i == nearestAsk)
		}
		if i < len(topBids) {
			rows[i].Bid = makeCell(topBids[i], i == nearestBid)
		}
	}

	return &domain.DepthView{
		Rows:      rows,
		Price:     price,
		Direction: domain.DirectionOf(price, prev),
		UpdatedAt: updatedAt,
	}
}

func makeCell(lvl domain.Level, nearest bool) *domain.Cell {
	return &domain.Cell{
		Price:   lvl.Price,
		Qty:     lvl.Qty,
		Value:   lvl.Price.Mul(lvl.Qty),
		Nearest: nearest,
	}
}

// ComputeMetrics derives the full-book aggregates. Best prices are zero
// when a side is empty, spread needs both sides, and imbalance defaults
// to the neutral 0.5 when the whole book is empty.
func ComputeMetrics(bids, asks []domain.Level, updatedAt time.Time) domain.Metrics {
	var m domain.Metrics

	for i, lvl := range bids {
		if i == 0 || lvl.Price.GreaterThan(m.BestBid) {
			m.BestBid = lvl.Price
		}
	}
	for i, lvl := range asks {
		if i == 0 || lvl.Price.LessThan(m.BestAsk) {
			m.BestAsk = lvl.Price
		}
	}

	if len(bids) > 0 && len(asks) > 0 {
		m.Spread = m.BestAsk.Sub(m.BestBid)
		if m.BestAsk.Sign() > 0 {
			m.SpreadPct = m.Spread.Div(m.BestAsk).Mul(decimal.NewFromInt(100))
		}
	}

	totalBid := decimal.Zero
	totalAsk := decimal.Zero
	for _, lvl := range bids {
		totalBid = totalBid.Add(lvl.Qty)
	}
	for _, lvl := range asks {
		totalAsk = totalAsk.Add(lvl.Qty)
	}
	total := totalBid.Add(totalAsk)
	if total.Sign() > 0 {
		m.Imbalance, _ = totalBid.Div(total).Float64()
	} else {
		m.Imbalance = 0.5
	}

	if !updatedAt.IsZero() {
		m.Age = time.Since(updatedAt)
	}
	return m
}

// ComputeTotals sums price×qty per side over the full book.
func ComputeTotals(bids, asks []domain.Level) domain.Totals {
	t := domain.Totals{Buy: decimal.Zero, Sell: decimal.Zero}
	for _, lvl := range bids {
		t.Buy = t.Buy.Add(lvl.Price.Mul(lvl.Qty))
	}
	for _, lvl := range asks {
		t.Sell = t.Sell.Add(lvl.Price.Mul(lvl.Qty))
	}
	return t
}

// SelectSupportResistance picks the k strongest levels per side, same
// selection rule as the top-N rows but independently configurable.
func SelectSupportResistance(bids, asks []domain.Level, k int) domain.SupportResistance {
	return domain.SupportResistance{
		Supports:    TopByQty(bids, k),
		Resistances: TopByQty(asks, k),
	}
}
