package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState is the stream connection state.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Subscribed
	Stopped
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Subscribed:
		return "SUBSCRIBED"
	case Stopped:
		return "STOPPED"
	default:
		return "DISCONNECTED"
	}
}

// StreamHandler supplies the exchange-specific pieces of a WSWorker:
// where to connect, what to send on connect (the subscribe request), and
// how to consume inbound frames.
type StreamHandler interface {
	URL() string
	ID() string
	// OnConnect runs right after the dial succeeds. An error here counts
	// as a connection failure and grows the backoff.
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	OnPing(ctx context.Context, conn *websocket.Conn) error
}

// WSWorker owns the lifecycle of one streaming connection: dial,
// subscribe, read loop, disconnect detection and reconnect.
//
// Connection failures are retried with exponential backoff (1.5x, capped);
// the backoff resets after every successfully subscribed period. A session
// that was established and then ended reconnects after a short fixed
// pause instead.
type WSWorker struct {
	handler StreamHandler
	backoff *Backoff

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCancel context.CancelFunc // cancels goroutines tied to conn
	writeMu    sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	state      atomic.Int32

	ReadTimeout  time.Duration
	PingInterval time.Duration
}

// NewWSWorker creates a worker around the handler. backoffBase/backoffMax
// bound the reconnect delays.
func NewWSWorker(handler StreamHandler, backoffBase, backoffMax time.Duration) *WSWorker {
	return &WSWorker{
		handler:      handler,
		backoff:      NewBackoff(backoffBase, backoffMax),
		ReadTimeout:  60 * time.Second,
		PingInterval: 20 * time.Second,
	}
}

// Start launches the connection loop.
func (w *WSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop closes the active connection (best effort) and prevents any further
// reconnect attempts. Idempotent and safe to call from any goroutine.
func (w *WSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

// State reports the current connection state.
func (w *WSWorker) State() ConnState {
	return ConnState(w.state.Load())
}

func (w *WSWorker) setState(s ConnState) {
	w.state.Store(int32(s))
}

func (w *WSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	defer w.setState(Stopped)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.setState(Connecting)
		if err := w.connect(ctx); err != nil {
			w.setState(Disconnected)
			if ctx.Err() != nil {
				return
			}
			delay := w.backoff.Next()
			slog.Warn("ws connect failed", "id", w.handler.ID(), "err", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		w.setState(Subscribed)
		w.backoff.Reset()
		slog.Info("ws subscribed", "id", w.handler.ID())

		w.process(ctx)

		w.setState(Disconnected)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(CleanClosePause):
		}
	}
}

func (w *WSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), nil)
	if err != nil {
		return err
	}

	// Each connection gets its own child context so the ping loop of a
	// dead session cannot outlive it into the next one.
	connCtx, connCancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.conn = conn
	w.connCancel = connCancel
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	if w.PingInterval > 0 {
		go w.pingLoop(connCtx, conn)
	}
	return nil
}

func (w *WSWorker) process(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("ws read ended", "id", w.handler.ID(), "err", err)
			}
			w.close()
			return
		}

		w.dispatch(ctx, msg)
	}
}

// dispatch guards the handler so one bad frame never kills the read loop.
func (w *WSWorker) dispatch(ctx context.Context, msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ws message handler panicked", "id", w.handler.ID(), "panic", r)
		}
	}()
	w.handler.OnMessage(ctx, msg)
}

// pingLoop keeps one connection alive. It is bound to that connection's
// context and pings only the connection it was started for, so a loop
// left over from a torn-down session can never touch its successor.
func (w *WSWorker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.handler.OnPing(ctx, conn); err != nil {
				slog.Warn("ws ping failed", "id", w.handler.ID(), "err", err)
				w.closeIf(conn)
				return
			}
		}
	}
}

// Write sends one message on the active connection. Serialized because
// gorilla connections allow a single concurrent writer.
func (w *WSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("ws not connected")
	}
	return c.WriteMessage(msgType, data)
}

func (w *WSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

// closeIf closes the active connection only if it is still conn.
func (w *WSWorker) closeIf(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != conn {
		return
	}
	w.closeLocked()
}

func (w *WSWorker) closeLocked() {
	if w.connCancel != nil {
		w.connCancel()
		w.connCancel = nil
	}
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
