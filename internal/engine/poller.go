package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/infra"
)

// TickerSource is the REST dependency the poller fetches prices from.
type TickerSource interface {
	FetchTicker(ctx context.Context, symbol string) (string, error)
}

// Poller re-fetches the traded price on a fixed interval, independent of
// the stream, to fill gaps when the stream lags or misses trade events.
// Failures are swallowed and retried on the next tick; a circuit breaker
// keeps a dead endpoint from being hammered.
type Poller struct {
	src      TickerSource
	symbol   string
	interval time.Duration
	breaker  *infra.CircuitBreaker
	apply    func(price string)
}

// NewPoller builds a poller that feeds fetched prices into apply.
func NewPoller(src TickerSource, symbol string, interval time.Duration, apply func(price string)) *Poller {
	if interval <= 0 {
		interval = 600 * time.Millisecond
	}
	return &Poller{
		src:      src,
		symbol:   symbol,
		interval: interval,
		breaker:  infra.NewCircuitBreaker("ticker-poll", 5, 15*time.Second),
		apply:    apply,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ticker poll panicked", "panic", r)
		}
	}()

	if !p.breaker.Allow() {
		return
	}

	price, err := p.src.FetchTicker(ctx, p.symbol)
	if err != nil {
		p.breaker.RecordFailure()
		slog.Warn("ticker poll failed", "symbol", p.symbol, "err", err)
		return
	}
	p.breaker.RecordSuccess()

	if price != "" {
		p.apply(price)
	}
}
