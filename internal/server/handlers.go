package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/QasimSalemm/bitget-spot-orders-book/internal/domain"
)

type cellJSON struct {
	Price   string `json:"price"`
	Qty     string `json:"qty"`
	Value   string `json:"value"`
	Nearest bool   `json:"nearest"`
}

type rowJSON struct {
	Ask *cellJSON `json:"ask"`
	Bid *cellJSON `json:"bid"`
}

type bookJSON struct {
	Rows      []rowJSON `json:"rows"`
	Price     string    `json:"price"`
	Direction string    `json:"direction"`
	Marker    string    `json:"marker"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

func toCellJSON(c *domain.Cell) *cellJSON {
	if c == nil {
		return nil
	}
	return &cellJSON{
		Price:   c.Price.StringFixed(domain.PriceDigits),
		Qty:     c.Qty.StringFixed(domain.QtyDigits),
		Value:   c.Value.StringFixed(domain.ValueDigits),
		Nearest: c.Nearest,
	}
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	view := s.tracker.View()
	if view == nil {
		writeJSON(w, http.StatusOK, bookJSON{
			Rows:      []rowJSON{},
			Price:     "N/A",
			Direction: domain.Flat.String(),
			Marker:    domain.Flat.Marker(),
		})
		return
	}

	resp := bookJSON{
		Rows:      make([]rowJSON, 0, len(view.Rows)),
		Price:     view.Price,
		Direction: view.Direction.String(),
		Marker:    view.Direction.Marker(),
	}
	if resp.Price == "" {
		resp.Price = "N/A"
	}
	if !view.UpdatedAt.IsZero() {
		resp.UpdatedAt = view.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	for _, row := range view.Rows {
		resp.Rows = append(resp.Rows, rowJSON{
			Ask: toCellJSON(row.Ask),
			Bid: toCellJSON(row.Bid),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals := s.tracker.Totals()
	writeJSON(w, http.StatusOK, map[string]string{
		"buy":  totals.Buy.StringFixed(domain.ValueDigits),
		"sell": totals.Sell.StringFixed(domain.ValueDigits),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.tracker.Metrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"bestBid":    m.BestBid.StringFixed(domain.PriceDigits),
		"bestAsk":    m.BestAsk.StringFixed(domain.PriceDigits),
		"spread":     m.Spread.StringFixed(domain.PriceDigits),
		"spreadPct":  m.SpreadPct.StringFixed(domain.QtyDigits),
		"imbalance":  m.Imbalance,
		"ageSeconds": m.Age.Seconds(),
	})
}

type levelJSON struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

func toLevelsJSON(levels []domain.Level) []levelJSON {
	out := make([]levelJSON, 0, len(levels))
	for _, lv := range levels {
		out = append(out, levelJSON{
			Price: lv.Price.StringFixed(domain.PriceDigits),
			Qty:   lv.Qty.StringFixed(domain.QtyDigits),
		})
	}
	return out
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "count must be a positive integer"})
			return
		}
		count = n
	}
	sr := s.tracker.SupportResistance(count)
	writeJSON(w, http.StatusOK, map[string]any{
		"supports":    toLevelsJSON(sr.Supports),
		"resistances": toLevelsJSON(sr.Resistances),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.tracker.Running(),
		"symbol":  s.tracker.Symbol(),
		"topN":    s.tracker.TopN(),
		"stream":  s.tracker.StreamState().String(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.tracker.Start()
	s.handleStatus(w, r)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.tracker.Stop()
	s.handleStatus(w, r)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		TopN   int    `json:"topN"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TopN < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "topN must not be negative"})
		return
	}
	s.tracker.Restart(strings.TrimSpace(req.Symbol), req.TopN)
	s.handleStatus(w, r)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.tracker.ClearBooks()
	s.handleStatus(w, r)
}
