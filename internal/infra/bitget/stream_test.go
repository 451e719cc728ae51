package bitget

import (
	"context"
	"testing"
	"time"
)

type recordingSink struct {
	depths []struct{ bids, asks [][]string }
	trades []string
}

func (r *recordingSink) ApplyDepth(bids, asks [][]string) {
	r.depths = append(r.depths, struct{ bids, asks [][]string }{bids, asks})
}

func (r *recordingSink) ApplyTrade(price string) {
	r.trades = append(r.trades, price)
}

func newTestStream(sink Sink) *Stream {
	return NewStream(DefaultWSURL, "BTCUSDT", sink, time.Second, 10*time.Second)
}

func TestStream_OnMessage_ControlFramesIgnored(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"subscribe ack", `{"event":"subscribe","arg":{"instType":"SPOT","channel":"books","instId":"BTCUSDT"}}`},
		{"error frame", `{"event":"error","code":30001,"msg":"channel does not exist"}`},
		{"bare code", `{"code":400,"msg":"bad request"}`},
		{"pong", `pong`},
		{"malformed json", `{"data":`},
		{"no data", `{"action":"update","arg":{"channel":"books"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := newTestStream(sink)
			s.OnMessage(context.Background(), []byte(tt.msg))
			if len(sink.depths) != 0 || len(sink.trades) != 0 {
				t.Errorf("control frame dispatched data: depths=%d trades=%d",
					len(sink.depths), len(sink.trades))
			}
		})
	}
}

func TestStream_OnMessage_BookUpdate(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStream(sink)

	msg := `{"action":"update","arg":{"instType":"SPOT","channel":"books","instId":"BTCUSDT"},` +
		`"data":[{"bids":[["100.0","2"],["99.5","5"]],"asks":[["100.5","0"]],"ts":"1"}]}`
	s.OnMessage(context.Background(), []byte(msg))

	if len(sink.depths) != 1 {
		t.Fatalf("depth calls = %d, want 1", len(sink.depths))
	}
	if got := len(sink.depths[0].bids); got != 2 {
		t.Errorf("bids = %d, want 2", got)
	}
	if got := len(sink.depths[0].asks); got != 1 {
		t.Errorf("asks = %d, want 1", got)
	}
	if len(sink.trades) != 0 {
		t.Errorf("book frame produced trades: %v", sink.trades)
	}
}

func TestStream_OnMessage_TradeLatestInBatchWins(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStream(sink)

	msg := `{"action":"update","arg":{"channel":"trades","instId":"BTCUSDT"},` +
		`"data":[{"price":"100.1"},{"price":"100.2"},{"price":"100.3"}]}`
	s.OnMessage(context.Background(), []byte(msg))

	if len(sink.trades) != 1 || sink.trades[0] != "100.3" {
		t.Errorf("trades = %v, want [100.3]", sink.trades)
	}
}

func TestStream_OnMessage_TradePriceFieldFallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"p wins over all", `{"p":"1","price":"2","last":"3"}`, "1"},
		{"price wins over last", `{"price":"2","last":"3"}`, "2"},
		{"last alone", `{"last":"3"}`, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := newTestStream(sink)
			s.OnMessage(context.Background(),
				[]byte(`{"arg":{"channel":"trades"},"data":[`+tt.data+`]}`))
			if len(sink.trades) != 1 || sink.trades[0] != tt.want {
				t.Errorf("trades = %v, want [%s]", sink.trades, tt.want)
			}
		})
	}
}

func TestStream_OnMessage_BookBeforeTradeInOneMessage(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStream(sink)

	// A block carrying both book arrays and a price field: the book delta
	// applies first, then the trade.
	msg := `{"arg":{"channel":"books"},"data":[{"bids":[["100","1"]],"price":"99.9"}]}`
	s.OnMessage(context.Background(), []byte(msg))

	if len(sink.depths) != 1 {
		t.Fatalf("depth calls = %d, want 1", len(sink.depths))
	}
	if len(sink.trades) != 1 || sink.trades[0] != "99.9" {
		t.Fatalf("trades = %v, want [99.9]", sink.trades)
	}
}

func TestStream_OnMessage_SingleObjectPayload(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStream(sink)

	msg := `{"arg":{"channel":"books"},"data":{"asks":[["101","4"]]}}`
	s.OnMessage(context.Background(), []byte(msg))

	if len(sink.depths) != 1 {
		t.Fatalf("depth calls = %d, want 1 for single-object payload", len(sink.depths))
	}
}

func TestStream_OnMessage_TradeChannelWithoutPriceIsNoop(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStream(sink)

	s.OnMessage(context.Background(), []byte(`{"arg":{"channel":"trades"},"data":[{"ts":"1"}]}`))
	if len(sink.trades) != 0 {
		t.Errorf("trades = %v, want none", sink.trades)
	}
}
