package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/domain"
)

// Source is the shared state the aggregator reads from and publishes to.
// AggregateInput must return copies taken under the owner's lock so the
// computation can run outside it.
type Source interface {
	AggregateInput() (bids, asks []domain.Level, price, prev string, topN int, updatedAt time.Time)
	Publish(view *domain.DepthView)
}

// Aggregator periodically recomputes the depth view. The interval adapts:
// every tick that produces no row change stretches the delay by one idle
// step (capped), and any change snaps it back to the base delay.
type Aggregator struct {
	src      Source
	base     time.Duration
	idleStep time.Duration
	maxExtra time.Duration
}

// NewAggregator builds the recompute loop around src.
func NewAggregator(src Source, base, maxExtra time.Duration) *Aggregator {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if maxExtra < 0 {
		maxExtra = 0
	}
	return &Aggregator{
		src:      src,
		base:     base,
		idleStep: 100 * time.Millisecond,
		maxExtra: maxExtra,
	}
}

// Run executes aggregation ticks until ctx is cancelled. A panicking tick
// is logged and the loop continues with the next tick.
func (a *Aggregator) Run(ctx context.Context) {
	var last *domain.DepthView
	idle := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		changed := a.tick(&last)
		if changed {
			idle = 0
		} else {
			idle++
		}

		extra := time.Duration(idle) * a.idleStep
		if extra > a.maxExtra {
			extra = a.maxExtra
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.base + extra):
		}
	}
}

func (a *Aggregator) tick(last **domain.DepthView) (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("aggregator tick panicked", "panic", r)
		}
	}()

	bids, asks, price, prev, topN, updatedAt := a.src.AggregateInput()
	view := BuildView(bids, asks, price, prev, topN, updatedAt)

	if *last != nil && view.EqualRows(*last) {
		return false
	}
	a.src.Publish(view)
	*last = view
	return true
}
