package infra

import "time"

const (
	backoffFactor = 1.5
	// CleanClosePause is the fixed delay before reconnecting after a
	// session that was established and then ended. A clean close is not
	// a failure signal, so the backoff does not grow.
	CleanClosePause = 500 * time.Millisecond
)

// Backoff produces reconnect delays for consecutive connection failures:
// the delay starts at base, grows 1.5x per failure and is capped at max.
// Not safe for concurrent use; each connection loop owns one.
type Backoff struct {
	base time.Duration
	max  time.Duration
	cur  time.Duration
}

// NewBackoff creates a backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{base: base, max: max, cur: base}
}

// Next returns the delay to wait before the next attempt and advances the
// sequence. Delays are non-decreasing until Reset.
func (b *Backoff) Next() time.Duration {
	d := b.cur
	next := time.Duration(float64(b.cur) * backoffFactor)
	if next > b.max {
		next = b.max
	}
	b.cur = next
	return d
}

// Reset returns the sequence to the base delay. Called after any
// successfully subscribed period.
func (b *Backoff) Reset() {
	b.cur = b.base
}
