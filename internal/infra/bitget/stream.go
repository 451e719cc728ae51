package bitget

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/infra"
	"github.com/gorilla/websocket"
)

// Sink receives classified stream data. Implemented by the Tracker, which
// merges it into shared state under its lock.
type Sink interface {
	ApplyDepth(bids, asks [][]string)
	ApplyTrade(price string)
}

// Stream supervises the Bitget public WebSocket for one instrument: it
// subscribes to the book and trade channels after each (re)connect and
// dispatches inbound frames to the sink synchronously from the read loop.
type Stream struct {
	worker *infra.WSWorker
	url    string
	symbol string
	sink   Sink
}

// NewStream builds an unstarted stream supervisor.
func NewStream(wsURL, symbol string, sink Sink, backoffBase, backoffMax time.Duration) *Stream {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	s := &Stream{url: wsURL, symbol: symbol, sink: sink}
	s.worker = infra.NewWSWorker(s, backoffBase, backoffMax)
	return s
}

// Start launches the connect/subscribe/read loop.
func (s *Stream) Start(ctx context.Context) {
	s.worker.Start(ctx)
}

// Stop closes the connection and halts reconnects. Idempotent.
func (s *Stream) Stop() {
	s.worker.Stop()
}

// State reports the connection state for status surfaces.
func (s *Stream) State() infra.ConnState {
	return s.worker.State()
}

func (s *Stream) URL() string { return s.url }
func (s *Stream) ID() string  { return "BITGET_SPOT:" + s.symbol }

// OnConnect sends the one subscribe request naming the book and trade
// channels for the tracked instrument.
func (s *Stream) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	req := subscribeRequest{
		Op: "subscribe",
		Args: []subscribeArg{
			{InstType: "SPOT", Channel: channelBooks, InstId: s.symbol},
			{InstType: "SPOT", Channel: channelTrades, InstId: s.symbol},
		},
	}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.worker.Write(websocket.TextMessage, b)
}

// OnMessage classifies one inbound frame. Control/ack frames are ignored.
// Book-shaped blocks apply as deltas before any trade price in the same
// message is considered; the latest price in the batch wins.
func (s *Stream) OnMessage(ctx context.Context, msg []byte) {
	if string(msg) == "pong" {
		return
	}

	var m wsMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return
	}
	if m.isControl() {
		return
	}

	blocks := decodeBlocks(m.Data)
	if len(blocks) == 0 {
		return
	}

	for i := range blocks {
		if blocks[i].hasBook() {
			s.sink.ApplyDepth(blocks[i].Bids, blocks[i].Asks)
		}
	}

	if !strings.Contains(m.Arg.Channel, "trade") && !anyTradeShaped(blocks) {
		return
	}
	last := ""
	for i := range blocks {
		if p := blocks[i].tradePrice(); p != "" {
			last = p
		}
	}
	if last != "" {
		s.sink.ApplyTrade(last)
	}
}

func anyTradeShaped(blocks []dataBlock) bool {
	for i := range blocks {
		if blocks[i].tradePrice() != "" {
			return true
		}
	}
	return false
}

// OnPing keeps the Bitget session alive with the textual ping the venue
// expects instead of a protocol-level ping frame.
func (s *Stream) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return s.worker.Write(websocket.TextMessage, []byte("ping"))
}
