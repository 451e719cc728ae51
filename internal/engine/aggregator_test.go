package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/domain"
)

type fakeSource struct {
	mu        sync.Mutex
	bids      []domain.Level
	asks      []domain.Level
	price     string
	published []*domain.DepthView
}

func (f *fakeSource) AggregateInput() ([]domain.Level, []domain.Level, string, string, int, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bids, f.asks, f.price, "", 5, time.Now()
}

func (f *fakeSource) Publish(view *domain.DepthView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, view)
}

func (f *fakeSource) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeSource) setBids(bids []domain.Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bids = bids
}

func TestAggregator_PublishesOnlyOnChange(t *testing.T) {
	src := &fakeSource{bids: []domain.Level{lvl("100", "2")}}
	agg := NewAggregator(src, 10*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agg.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	firstPhase := src.publishedCount()
	if firstPhase != 1 {
		t.Errorf("published %d views for unchanged state, want exactly 1", firstPhase)
	}

	src.setBids([]domain.Level{lvl("100", "3")})
	time.Sleep(150 * time.Millisecond)
	if got := src.publishedCount(); got != firstPhase+1 {
		t.Errorf("published %d views after one change, want %d", got, firstPhase+1)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Run did not stop on cancel")
	}
}

func TestAggregator_FirstTickPublishesEmptyView(t *testing.T) {
	src := &fakeSource{}
	agg := NewAggregator(src, 10*time.Millisecond, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	agg.Run(ctx)

	if src.publishedCount() != 1 {
		t.Fatalf("published = %d, want 1 (empty view is still a view)", src.publishedCount())
	}
	if len(src.published[0].Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(src.published[0].Rows))
	}
}

type panickySource struct {
	fakeSource
	calls int
}

func (p *panickySource) AggregateInput() ([]domain.Level, []domain.Level, string, string, int, time.Time) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if n == 1 {
		panic("bad tick")
	}
	return p.fakeSource.AggregateInput()
}

func TestAggregator_SurvivesPanickingTick(t *testing.T) {
	src := &panickySource{}
	src.bids = []domain.Level{lvl("100", "1")}
	agg := NewAggregator(src, 10*time.Millisecond, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	agg.Run(ctx)

	if src.publishedCount() == 0 {
		t.Error("loop died after a panicking tick; no view was ever published")
	}
}
