package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned after the client has been closed.
var ErrClosed = errors.New("client closed")

// RequestError is an error response to a command.
type RequestError struct {
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request error: %s", e.Code)
	}
	return fmt.Sprintf("request error %s: %s", e.Code, e.Message)
}

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the websocket opening handshake.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscribe response.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
	}
}

// WSClient is a single ledger node websocket connection.
// It does not reconnect; a read error ends the stream.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to the channel waiting for its response
	pending   map[uint64]chan wsResponse
	pendingMu sync.Mutex

	messages chan []byte
	readErr  error
	errMu    sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

var _ Stream = (*WSClient)(nil)

// NewWSClient connects to the endpoint and starts the reader and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		pending:  make(map[uint64]chan wsResponse),
		messages: make(chan []byte, 1024),
		done:     make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// Subscribe sends a subscribe command for the given streams.
func (c *WSClient) Subscribe(ctx context.Context, streams ...string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		ID:      reqID,
		Command: "subscribe",
		Streams: streams,
	}

	respCh := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()
	defer c.forget(reqID)

	if err := c.writeJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Status != "success" {
			return &RequestError{Code: resp.Error, Message: resp.ErrorMessage}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("subscribe timeout after %v", c.config.SubscribeTimeout)
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next stream message. Once the connection fails it
// returns the read error.
func (c *WSClient) Next(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.messages:
		if !ok {
			return nil, c.Err()
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the error that ended the stream, if any.
func (c *WSClient) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.writeMu.Unlock()

	c.wg.Wait()
	return err
}

// readLoop reads frames, routes command responses to their waiters and
// queues everything else for Next.
func (c *WSClient) readLoop() {
	defer c.wg.Done()
	defer close(c.messages)

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				err = ErrClosed
			}
			c.setErr(fmt.Errorf("websocket read: %w", err))
			return
		}

		if c.handleResponse(message) {
			continue
		}

		select {
		case c.messages <- message:
		case <-c.done:
			c.setErr(ErrClosed)
			return
		}
	}
}

// handleResponse delivers a command response to its waiter.
func (c *WSClient) handleResponse(message []byte) bool {
	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err != nil || resp.Type != MessageTypeResponse {
		return false
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
	return true
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			// A dead connection surfaces through the reader.
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

func (c *WSClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *WSClient) forget(reqID uint64) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

func (c *WSClient) setErr(err error) {
	c.errMu.Lock()
	if c.readErr == nil {
		c.readErr = err
	}
	c.errMu.Unlock()
}

// WebSocket message types

type wsRequest struct {
	ID      uint64   `json:"id"`
	Command string   `json:"command"`
	Streams []string `json:"streams,omitempty"`
}

type wsResponse struct {
	ID           uint64          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}
