// Package signaling is the client side of the relay connection.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 128 * 1024

	// DefaultReconnectDelay is the fixed wait between relay connection
	// attempts.
	DefaultReconnectDelay = 5 * time.Second

	cookieName = "peerid"
)

// ErrNotConnected is returned when sending while the relay connection is down.
var ErrNotConnected = errors.New("not connected to signaling server")

// Client manages the WebSocket connection to the signaling server and keeps
// it up until Close is called.
type Client struct {
	serverURL      string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	log            *slog.Logger

	mu       sync.Mutex
	peerID   string
	out      chan protocol.Envelope
	connDone chan struct{}
	closed   bool
	closing  chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// WithPeerID resumes a previous identity instead of asking for a new one.
func WithPeerID(id string) Option {
	return func(c *Client) { c.peerID = id }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new signaling client for the given ws:// or wss:// URL.
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL:      serverURL,
		reconnectDelay: DefaultReconnectDelay,
		dialer: &websocket.Dialer{
			NetDialContext:   dialContext,
			HandshakeTimeout: 10 * time.Second,
			Proxy:            http.ProxyFromEnvironment,
		},
		log:     slog.Default(),
		closing: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PeerID returns the id the relay assigned to this client, or "" before the
// first connection.
func (c *Client) PeerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerID
}

// Run connects and dispatches relay messages to h until ctx is done or Close
// is called. Lost connections are retried after the reconnect delay.
func (c *Client) Run(ctx context.Context, h Handler) error {
	for {
		err := c.session(ctx, h)

		if c.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.log.Debug("signaling connection lost", "error", err, "retry_in", c.reconnectDelay)
		h.HandleDisconnected(c.reconnectDelay)

		select {
		case <-time.After(c.reconnectDelay):
		case <-c.closing:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session runs a single connection until it drops.
func (c *Client) session(ctx context.Context, h Handler) error {
	header := http.Header{}
	if id := c.PeerID(); id != "" {
		header.Set("Cookie", (&http.Cookie{Name: cookieName, Value: id}).String())
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.serverURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == cookieName && ck.Value != "" {
			c.setPeerID(ck.Value)
		}
	}

	out := make(chan protocol.Envelope, 64)
	done := make(chan struct{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.out, c.connDone = out, done
	c.mu.Unlock()

	go c.writePump(conn, out, done)
	h.HandleConnected()

	err = c.readPump(conn, h)

	c.mu.Lock()
	c.out, c.connDone = nil, nil
	c.mu.Unlock()
	close(done)
	conn.Close()
	return err
}

// readPump reads messages from the WebSocket connection and dispatches them.
// Probes are answered here and never reach the handler.
func (c *Client) readPump(conn *websocket.Conn, h Handler) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := protocol.ParseEnvelope(raw)
		if err != nil {
			c.log.Debug("dropping malformed relay message", "error", err)
			continue
		}

		switch env.Type {
		case protocol.TypePing:
			pong, _ := protocol.NewEnvelope(protocol.TypePong, "", nil)
			if err := c.Send(pong); err != nil {
				c.log.Debug("failed to answer probe", "error", err)
			}
			continue
		case protocol.TypeDisplayName:
			var dn protocol.DisplayNamePayload
			if env.Decode(&dn) == nil && dn.PeerID != "" {
				c.setPeerID(dn.PeerID)
			}
		}

		Dispatch(h, env, c.log)
	}
}

// writePump writes queued envelopes and sends periodic pings. On Close it
// flushes what is queued before sending the close frame.
func (c *Client) writePump(conn *websocket.Conn, out <-chan protocol.Envelope, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(env protocol.Envelope) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(env); err != nil {
			c.log.Debug("signaling write failed", "error", err)
			conn.Close()
			return false
		}
		return true
	}

	for {
		select {
		case env := <-out:
			if !write(env) {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-c.closing:
			for {
				select {
				case env := <-out:
					if !write(env) {
						return
					}
					continue
				default:
				}
				break
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return

		case <-done:
			return
		}
	}
}

// Send queues an envelope for the relay. It blocks while the outgoing queue
// is full and fails if the connection drops meanwhile.
func (c *Client) Send(env protocol.Envelope) error {
	c.mu.Lock()
	out, done := c.out, c.connDone
	c.mu.Unlock()

	if out == nil {
		return ErrNotConnected
	}
	select {
	case out <- env:
		return nil
	case <-done:
		return ErrNotConnected
	}
}

// Close tells the relay we are leaving and shuts the connection down.
func (c *Client) Close() {
	bye, _ := protocol.NewEnvelope(protocol.TypeDisconnect, "", nil)
	c.Send(bye)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.closing)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) setPeerID(id string) {
	c.mu.Lock()
	c.peerID = id
	c.mu.Unlock()
}
