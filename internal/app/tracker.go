package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/domain"
	"github.com/QasimSalemm/bitget-spot-orders-book/internal/engine"
	"github.com/QasimSalemm/bitget-spot-orders-book/internal/infra"
	"github.com/QasimSalemm/bitget-spot-orders-book/internal/infra/bitget"
)

// restClient is the REST dependency of the tracker.
type restClient interface {
	FetchOrderBook(ctx context.Context, symbol string, limit int) ([][]string, [][]string, error)
	FetchTicker(ctx context.Context, symbol string) (string, error)
}

// streamHandle is the running stream supervisor.
type streamHandle interface {
	Start(ctx context.Context)
	Stop()
	State() infra.ConnState
}

const (
	// restartPause lets the prior stream connection fully release its
	// remote subscription before reconnecting under the same instrument.
	restartPause = 100 * time.Millisecond
	// stopWait bounds how long Stop waits for loops to observe the
	// cancellation; shutdown is best effort, not a hard join.
	stopWait = time.Second
)

// Tracker owns the shared order-book state for one instrument and the
// three loops feeding it: the stream supervisor, the REST ticker poller
// and the snapshot aggregator. All state is guarded by one mutex, held
// only for short, non-blocking sections; network calls happen outside it.
//
// Tracker is an explicit, constructible service object: callers hold a
// reference and drive its lifecycle, there is no global instance.
type Tracker struct {
	cfg  *infra.Config
	rest restClient

	// newStream is swappable for tests.
	newStream func(symbol string, sink bitget.Sink) streamHandle

	lifecycle sync.Mutex // serializes Start/Stop/Restart

	mu         sync.Mutex
	book       *domain.Book
	trace      domain.PriceTrace
	view       *domain.DepthView
	lastUpdate time.Time
	symbol     string
	topN       int

	running bool
	cancel  context.CancelFunc
	stream  streamHandle
	wg      *sync.WaitGroup
}

// NewTracker builds a stopped tracker from config.
func NewTracker(cfg *infra.Config) *Tracker {
	timeout := time.Duration(cfg.Intervals.RequestTimeoutS) * time.Second
	t := &Tracker{
		cfg:    cfg,
		rest:   bitget.NewClient(cfg.Bitget.RestURL, timeout),
		book:   domain.NewBook(),
		symbol: cfg.Bitget.Symbol,
		topN:   cfg.Book.TopN,
	}
	t.newStream = func(symbol string, sink bitget.Sink) streamHandle {
		return bitget.NewStream(
			cfg.Bitget.WSURL,
			symbol,
			sink,
			time.Duration(cfg.Intervals.BackoffBaseMS)*time.Millisecond,
			time.Duration(cfg.Intervals.BackoffMaxMS)*time.Millisecond,
		)
	}
	return t
}

// Start bootstraps state from REST and launches the feed loops. No-op if
// already running.
func (t *Tracker) Start() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.start()
}

func (t *Tracker) start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	symbol := t.symbol
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	t.bootstrap(ctx, symbol)

	stream := t.newStream(symbol, t)
	stream.Start(ctx)

	poller := engine.NewPoller(t.rest, symbol,
		time.Duration(t.cfg.Intervals.TickerPollMS)*time.Millisecond, t.ApplyTrade)
	agg := engine.NewAggregator(t,
		time.Duration(t.cfg.Intervals.AggregateMS)*time.Millisecond,
		time.Duration(t.cfg.Intervals.AggregateIdleMS)*time.Millisecond)

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		agg.Run(ctx)
	}()

	t.mu.Lock()
	t.running = true
	t.cancel = cancel
	t.stream = stream
	t.wg = wg
	t.mu.Unlock()

	slog.Info("tracker started", "symbol", symbol)
}

// bootstrap performs the one-shot REST fill of book and price. Best
// effort: a failure leaves the corresponding state empty, never partially
// filled from a prior run.
func (t *Tracker) bootstrap(ctx context.Context, symbol string) {
	bids, asks, err := t.rest.FetchOrderBook(ctx, symbol, t.cfg.Bitget.Depth)
	t.mu.Lock()
	if err != nil {
		t.book.Clear()
	} else {
		t.book.ReplaceSnapshot(bids, asks)
		t.lastUpdate = time.Now()
	}
	t.mu.Unlock()
	if err != nil {
		slog.Warn("bootstrap order book failed", "symbol", symbol, "err", err)
	}

	price, err := t.rest.FetchTicker(ctx, symbol)
	t.mu.Lock()
	if err != nil {
		t.trace.Reset()
	} else {
		t.trace.SetPrice(price)
	}
	t.mu.Unlock()
	if err != nil {
		slog.Warn("bootstrap ticker failed", "symbol", symbol, "err", err)
	}
}

// Stop signals all loops, closes the stream and waits briefly for the
// loops to exit. No-op if not running; safe to call repeatedly.
func (t *Tracker) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stop()
}

func (t *Tracker) stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, stream, wg := t.cancel, t.stream, t.wg
	t.running = false
	t.cancel, t.stream, t.wg = nil, nil, nil
	t.mu.Unlock()

	cancel()
	stream.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopWait):
		slog.Warn("tracker loops still draining after stop")
	}
	slog.Info("tracker stopped")
}

// Restart stops the tracker, applies any parameter changes, clears all
// state and starts again. Empty symbol / non-positive topN keep the
// current values.
func (t *Tracker) Restart(symbol string, topN int) {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stop()

	t.mu.Lock()
	if symbol != "" {
		t.symbol = strings.ToUpper(symbol)
	}
	if topN > 0 {
		t.topN = topN
	}
	t.book.Clear()
	t.trace.Reset()
	t.view = nil
	t.lastUpdate = time.Time{}
	t.mu.Unlock()

	time.Sleep(restartPause)
	t.start()
}

// ClearBooks empties both book sides without touching the running state
// or the price trace. Usable while running.
func (t *Tracker) ClearBooks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.book.Clear()
}

// ApplyDepth merges one stream delta into the book. Part of bitget.Sink.
func (t *Tracker) ApplyDepth(bids, asks [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.book.ApplyDelta(domain.Bid, bids)
	t.book.ApplyDelta(domain.Ask, asks)
	t.lastUpdate = time.Now()
}

// ApplyTrade records a traded-price observation. Part of bitget.Sink.
func (t *Tracker) ApplyTrade(price string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trace.SetPrice(price)
}

// AggregateInput hands the aggregator copies of the current state.
// Part of engine.Source.
func (t *Tracker) AggregateInput() ([]domain.Level, []domain.Level, string, string, int, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.Levels(domain.Bid), t.book.Levels(domain.Ask),
		t.trace.Current(), t.trace.Previous(), t.topN, t.lastUpdate
}

// Publish atomically replaces the published view. Part of engine.Source.
func (t *Tracker) Publish(view *domain.DepthView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view = view
}

// View returns the latest published snapshot, nil before the first
// aggregation tick. The returned view is immutable.
func (t *Tracker) View() *domain.DepthView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// Totals computes the full-book notionals per side.
func (t *Tracker) Totals() domain.Totals {
	bids, asks := t.copySides()
	return engine.ComputeTotals(bids, asks)
}

// Metrics computes the full-book aggregates.
func (t *Tracker) Metrics() domain.Metrics {
	t.mu.Lock()
	bids := t.book.Levels(domain.Bid)
	asks := t.book.Levels(domain.Ask)
	updatedAt := t.lastUpdate
	t.mu.Unlock()
	return engine.ComputeMetrics(bids, asks, updatedAt)
}

// SupportResistance returns the k strongest levels per side; k <= 0 uses
// the configured default.
func (t *Tracker) SupportResistance(k int) domain.SupportResistance {
	if k <= 0 {
		k = t.cfg.Book.LevelK
	}
	bids, asks := t.copySides()
	return engine.SelectSupportResistance(bids, asks, k)
}

func (t *Tracker) copySides() ([]domain.Level, []domain.Level) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.Levels(domain.Bid), t.book.Levels(domain.Ask)
}

// Running reports whether the loops are live.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Symbol returns the tracked instrument.
func (t *Tracker) Symbol() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.symbol
}

// TopN returns the current row depth.
func (t *Tracker) TopN() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.topN
}

// StreamState reports the stream connection state for status surfaces.
func (t *Tracker) StreamState() infra.ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return infra.Disconnected
	}
	return t.stream.State()
}
