// Package feed streams hourly bars over WebSocket. The client reconnects
// with exponential backoff and re-sends its subscription, so a consumer
// sees a single ordered channel of bars regardless of transport hiccups.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/observability"
)

// ClientConfig configures WebSocket client behavior.
type ClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultClientConfig returns default WebSocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// subscribeFrame is the client-to-server subscription request.
type subscribeFrame struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// BarFrame is the wire form of one bar notification.
type BarFrame struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"ts"` // unix seconds, bar open
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Client is a reconnecting WebSocket bar subscriber for one symbol.
type Client struct {
	endpoint string
	symbol   string
	loc      *time.Location
	config   ClientConfig
	logger   zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	out chan *domain.Bar

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient connects, subscribes to the symbol's bars, and starts the read
// and ping loops. loc restores the exchange timezone on received
// timestamps; nil defaults to UTC.
func NewClient(ctx context.Context, endpoint, symbol string, loc *time.Location, config *ClientConfig, logger zerolog.Logger) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if loc == nil {
		loc = time.UTC
	}

	c := &Client{
		endpoint: endpoint,
		symbol:   symbol,
		loc:      loc,
		config:   cfg,
		logger:   logger.With().Str("component", "feed").Str("symbol", symbol).Logger(),
		out:      make(chan *domain.Bar, 1024),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	if err := c.subscribe(); err != nil {
		c.closeConn()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Bars returns the ordered bar channel. Closed when the client closes.
func (c *Client) Bars() <-chan *domain.Bar {
	return c.out
}

// Close closes the connection and the bar channel.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.out)
	return nil
}

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// subscribe sends the symbol subscription on the current connection.
func (c *Client) subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(subscribeFrame{Action: "subscribe", Symbol: c.symbol}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

// readLoop reads frames and forwards validated bars. Read errors trigger a
// reconnect with exponential backoff.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			observability.RecordFeedError("read")
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// handleMessage decodes and forwards one bar frame. Frames for other
// symbols and implausible bars are dropped.
func (c *Client) handleMessage(message []byte) {
	var frame BarFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		observability.RecordFeedError("decode")
		c.logger.Warn().Err(err).Msg("undecodable bar frame dropped")
		return
	}
	if frame.Symbol != "" && frame.Symbol != c.symbol {
		return
	}

	bar := &domain.Bar{
		Timestamp: time.Unix(frame.Timestamp, 0).In(c.loc),
		Open:      frame.Open,
		High:      frame.High,
		Low:       frame.Low,
		Close:     frame.Close,
		Volume:    frame.Volume,
	}
	if err := bar.Validate(); err != nil {
		observability.RecordFeedError("validate")
		c.logger.Warn().Err(err).Time("ts", bar.Timestamp).Msg("implausible bar frame dropped")
		return
	}

	observability.RecordBarReceived()

	select {
	case c.out <- bar:
	case <-c.done:
	}
}

// reconnect dials again after the delay and re-sends the subscription.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	observability.RecordFeedReconnect()
	c.closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Next read error retries with a longer delay.
		c.logger.Warn().Err(err).Msg("reconnect failed")
		return
	}
	if err := c.subscribe(); err != nil {
		c.logger.Warn().Err(err).Msg("resubscribe failed")
		c.closeConn()
		return
	}

	c.logger.Info().Msg("reconnected")
}

// pingLoop keeps the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.logger.Debug().Err(err).Msg("ping failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}
