package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// statsHandler receives market stats frames.
type statsHandler func(marketStatsMsg)

// walletBuyHandler receives tracked-wallet buy frames.
type walletBuyHandler func(walletBuyMsg)

// pairQuoteHandler receives pair quote frames.
type pairQuoteHandler func(pairQuoteMsg)

// wsClient is a WebSocket client for one venue market-data feed. It manages
// the connection lifecycle and dispatches inbound frames to registered
// handlers. Reconnection is handled by the owning Feed.
type wsClient struct {
	wsURL  string
	apiKey string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onStats     statsHandler
	onWalletBuy walletBuyHandler
	onPairQuote pairQuoteHandler

	// errCh receives the read-loop exit error exactly once per connection.
	errCh chan error
}

func newWSClient(wsURL, apiKey string) *wsClient {
	return &wsClient{
		wsURL:  wsURL,
		apiKey: apiKey,
		errCh:  make(chan error, 1),
	}
}

// connect dials the feed, subscribes to all channels, and starts the read
// and ping loops.
func (w *wsClient) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("venue/ws: client closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("venue/ws: connect %s: %w", w.wsURL, err)
	}
	w.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	cmd := wsCommand{
		Op:       "subscribe",
		Channels: []string{"market_stats", "wallet_buys", "pair_quotes"},
		ApiKey:   w.apiKey,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		_ = conn.Close()
		w.conn = nil
		return fmt.Errorf("venue/ws: subscribe: %w", err)
	}

	go w.readLoop(conn)
	go w.pingLoop(conn)

	return nil
}

// wait blocks until the current connection's read loop exits.
func (w *wsClient) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-w.errCh:
		return err
	}
}

func (w *wsClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case w.errCh <- err:
			default:
			}
			return
		}
		w.dispatch(data)
	}
}

func (w *wsClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

func (w *wsClient) dispatch(data []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	switch env.Type {
	case "market_stats":
		var msg marketStatsMsg
		if err := json.Unmarshal(env.Data, &msg); err == nil && w.onStats != nil {
			w.onStats(msg)
		}
	case "wallet_buy":
		var msg walletBuyMsg
		if err := json.Unmarshal(env.Data, &msg); err == nil && w.onWalletBuy != nil {
			w.onWalletBuy(msg)
		}
	case "pair_quote":
		var msg pairQuoteMsg
		if err := json.Unmarshal(env.Data, &msg); err == nil && w.onPairQuote != nil {
			w.onPairQuote(msg)
		}
	}
}

// close shuts down the active connection.
func (w *wsClient) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.conn != nil {
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = w.conn.Close()
		w.conn = nil
	}
}
