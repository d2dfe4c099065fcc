package relay

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/raulk/clock"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Relayed transfer frames carry
	// a 64 KB chunk, base64 encoded, plus the envelope.
	maxMessageSize = 128 * 1024

	sendBuffer = 256
)

// Peer is one live signaling connection.
//
// Identity fields are fixed at creation. Everything below the hub-owned
// marker is only touched from the hub goroutine.
type Peer struct {
	ID           string
	OriginKey    string
	Identity     protocol.IdentityInfo
	RTCSupported bool

	hub  *Hub
	conn *websocket.Conn
	send chan protocol.Envelope

	// hub-owned
	open     bool
	lastBeat time.Time
	timer    *clock.Timer
	beatSeq  uint64
}

// NewPeer wraps an upgraded connection. conn may be nil in tests, in which
// case the pumps must not be started.
func NewPeer(hub *Hub, conn *websocket.Conn, id, originKey string, identity protocol.IdentityInfo, rtcSupported bool) *Peer {
	return &Peer{
		ID:           id,
		OriginKey:    originKey,
		Identity:     identity,
		RTCSupported: rtcSupported,
		hub:          hub,
		conn:         conn,
		send:         make(chan protocol.Envelope, sendBuffer),
	}
}

// PublicInfo is what other room members learn about this peer.
func (p *Peer) PublicInfo() protocol.PeerInfo {
	return protocol.PeerInfo{
		ID:           p.ID,
		Name:         p.Identity,
		RTCSupported: p.RTCSupported,
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (p *Peer) ReadPump() {
	defer func() {
		p.hub.Unregister(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				p.hub.log.Debug("read error", "peer", p.ID, "error", err)
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		p.hub.Deliver(p, raw)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (p *Peer) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case env, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteJSON(env); err != nil {
				p.hub.log.Debug("write error", "peer", p.ID, "error", err)
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
