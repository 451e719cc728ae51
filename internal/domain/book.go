package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Side selects one half of the order book.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Level is resting interest at a single price.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Book holds both sides of the order book for one instrument.
// Sides are keyed by the canonical decimal string of the price so that
// "1.50" and "1.5" address the same level.
//
// Book is not internally synchronized; the owning Tracker guards all
// access with its single lock.
type Book struct {
	bids map[string]Level
	asks map[string]Level
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		bids: make(map[string]Level),
		asks: make(map[string]Level),
	}
}

func (b *Book) side(s Side) map[string]Level {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// Clear removes every level from both sides.
func (b *Book) Clear() {
	b.bids = make(map[string]Level)
	b.asks = make(map[string]Level)
}

// ReplaceSnapshot clears both sides and installs the given levels.
// Each raw level is a [price, qty] string pair as delivered by the REST
// depth endpoint. Malformed or short entries are skipped; entries with a
// non-positive quantity are not stored.
func (b *Book) ReplaceSnapshot(bids, asks [][]string) {
	b.Clear()
	insertAll(b.bids, bids)
	insertAll(b.asks, asks)
}

func insertAll(m map[string]Level, raw [][]string) {
	for _, entry := range raw {
		lvl, ok := parseLevel(entry)
		if !ok {
			continue
		}
		if lvl.Qty.Sign() > 0 {
			m[lvl.Price.String()] = lvl
		}
	}
}

// ApplyDelta merges incremental updates into one side. A quantity of zero
// (or below) removes the level; anything else inserts or overwrites it.
// Updates to the same price within one batch apply in order, last wins.
// Entries whose price or quantity fails exact decimal parsing are skipped
// rather than treated as zero, so a malformed payload never deletes a
// live level.
func (b *Book) ApplyDelta(s Side, updates [][]string) {
	m := b.side(s)
	for _, entry := range updates {
		lvl, ok := parseLevel(entry)
		if !ok {
			continue
		}
		key := lvl.Price.String()
		if lvl.Qty.Sign() <= 0 {
			delete(m, key)
		} else {
			m[key] = lvl
		}
	}
}

func parseLevel(entry []string) (Level, bool) {
	if len(entry) < 2 {
		return Level{}, false
	}
	price, err := decimal.NewFromString(entry[0])
	if err != nil {
		return Level{}, false
	}
	qty, err := decimal.NewFromString(entry[1])
	if err != nil {
		return Level{}, false
	}
	return Level{Price: price, Qty: qty}, true
}

// Levels returns a copy of one side, sorted ascending by price. The sort
// keeps reads deterministic regardless of map iteration order.
func (b *Book) Levels(s Side) []Level {
	m := b.side(s)
	out := make([]Level, 0, len(m))
	for _, lvl := range m {
		out = append(out, lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// Len reports the number of levels on one side.
func (b *Book) Len(s Side) int {
	return len(b.side(s))
}
