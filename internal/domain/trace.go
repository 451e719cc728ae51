package domain

import "github.com/shopspring/decimal"

// Direction classifies the last observed price move.
type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// Marker returns the display glyph for the direction.
func (d Direction) Marker() string {
	switch d {
	case Up:
		return "▲"
	case Down:
		return "▼"
	default:
		return "●"
	}
}

// PriceTrace keeps the last two distinct traded-price observations as the
// exact strings received from the feed, so formatting never drifts.
// Not internally synchronized; guarded by the Tracker lock.
type PriceTrace struct {
	current  string
	previous string
}

// SetPrice records a new observation. Empty strings and repeats of the
// current value are ignored; previous only moves when current changes.
func (t *PriceTrace) SetPrice(raw string) {
	if raw == "" || raw == t.current {
		return
	}
	t.previous = t.current
	t.current = raw
}

// Reset clears both observations.
func (t *PriceTrace) Reset() {
	t.current = ""
	t.previous = ""
}

func (t *PriceTrace) Current() string  { return t.current }
func (t *PriceTrace) Previous() string { return t.previous }

// Direction compares the two observations numerically. Flat when either
// is absent or unparsable.
func (t *PriceTrace) Direction() Direction {
	return DirectionOf(t.current, t.previous)
}

// DirectionOf compares two price strings numerically.
func DirectionOf(current, previous string) Direction {
	if current == "" || previous == "" {
		return Flat
	}
	cur, err := decimal.NewFromString(current)
	if err != nil {
		return Flat
	}
	prev, err := decimal.NewFromString(previous)
	if err != nil {
		return Flat
	}
	switch cur.Cmp(prev) {
	case 1:
		return Up
	case -1:
		return Down
	default:
		return Flat
	}
}
