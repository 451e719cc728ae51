package bitget

import "encoding/json"

const (
	DefaultWSURL   = "wss://ws.bitget.com/v2/ws/public"
	DefaultRestURL = "https://api.bitget.com"

	orderBookPath = "/api/v2/spot/market/orderbook"
	tickerPath    = "/api/v2/spot/market/tickers"

	channelBooks  = "books"
	channelTrades = "trades"
)

type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstId   string `json:"instId"`
}

// wsMessage is the envelope of every inbound stream frame. Control and
// acknowledgement frames carry an event or error code; data frames carry
// a channel tag and payload blocks.
type wsMessage struct {
	Event  string          `json:"event"`
	Code   json.RawMessage `json:"code"`
	Action string          `json:"action"`
	Arg    subscribeArg    `json:"arg"`
	Data   json.RawMessage `json:"data"`
}

func (m *wsMessage) isControl() bool {
	return m.Event != "" || (len(m.Code) > 0 && string(m.Code) != "null")
}

// dataBlock is one per-update block of a data frame. Book-shaped blocks
// carry bid/ask arrays of [price, qty] pairs; trade-shaped blocks carry a
// price under one of several keys.
type dataBlock struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`

	// Trade price fallbacks, checked in this order.
	P     string `json:"p"`
	Price string `json:"price"`
	Last  string `json:"last"`
}

func (b *dataBlock) hasBook() bool {
	return len(b.Bids) > 0 || len(b.Asks) > 0
}

// tradePrice returns the block's traded price using the ordered field
// fallback p → price → last, or "" when none is present.
func (b *dataBlock) tradePrice() string {
	if b.P != "" {
		return b.P
	}
	if b.Price != "" {
		return b.Price
	}
	return b.Last
}

// decodeBlocks accepts both a payload array and a single payload object.
func decodeBlocks(raw json.RawMessage) []dataBlock {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var blocks []dataBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks
	}
	var single dataBlock
	if err := json.Unmarshal(raw, &single); err == nil {
		return []dataBlock{single}
	}
	return nil
}

type bookResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	} `json:"data"`
}

type tickerResponse struct {
	Code string        `json:"code"`
	Data []tickerEntry `json:"data"`
}

type tickerEntry struct {
	LastPr string `json:"lastPr"`
	Last   string `json:"last"`
	Price  string `json:"price"`
}

// lastPrice applies the ordered field fallback lastPr → last → price.
func (e *tickerEntry) lastPrice() string {
	if e.LastPr != "" {
		return e.LastPr
	}
	if e.Last != "" {
		return e.Last
	}
	return e.Price
}
