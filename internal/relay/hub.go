// Package relay implements the signaling server: rooms keyed by network
// origin, presence notifications, message forwarding and liveness checks.
package relay

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/raulk/clock"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// DefaultHeartbeatPeriod is how often a peer is probed. A peer that has not
// answered for twice this long is evicted.
const DefaultHeartbeatPeriod = 30 * time.Second

type inbound struct {
	peer *Peer
	env  protocol.Envelope
}

type beat struct {
	peer *Peer
	seq  uint64
}

// Hub is the central brain of the signaling server.
//
// All room and peer state is owned by the goroutine running Run. Every other
// goroutine talks to it through channels.
type Hub struct {
	rooms map[string]Room

	register   chan *Peer
	unregister chan *Peer
	inbound    chan inbound
	beats      chan beat
	queries    chan chan map[string][]string
	done       chan struct{}

	clock  clock.Clock
	period time.Duration
	log    *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(h *Hub) { h.clock = c }
}

// WithHeartbeatPeriod sets the liveness probe interval.
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.period = d
		}
	}
}

// WithLogger sets the logger used by the hub and its peers.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a new Hub instance.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]Room),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		inbound:    make(chan inbound),
		beats:      make(chan beat, 64),
		queries:    make(chan chan map[string][]string),
		done:       make(chan struct{}),
		clock:      clock.New(),
		period:     DefaultHeartbeatPeriod,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Clock returns the time source the hub uses.
func (h *Hub) Clock() clock.Clock { return h.clock }

// Register hands a new connection to the hub. It returns false when the hub
// has stopped, in which case the caller owns the connection.
func (h *Hub) Register(p *Peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

// Unregister reports that a peer's socket is gone.
func (h *Hub) Unregister(p *Peer) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

// Deliver parses a raw message from p and queues it for the hub. Anything
// that is not a well-formed envelope is dropped.
func (h *Hub) Deliver(p *Peer, raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		h.log.Debug("dropping malformed message", "peer", p.ID, "error", err)
		return
	}
	select {
	case h.inbound <- inbound{peer: p, env: env}:
	case <-h.done:
	}
}

// Rooms returns the current members of every room, keyed by origin.
func (h *Hub) Rooms(ctx context.Context) (map[string][]string, error) {
	reply := make(chan map[string][]string, 1)
	select {
	case h.queries <- reply:
	case <-h.done:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rooms := <-reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts the hub's main processing loop and blocks until ctx is done.
// This is the single goroutine that manages all state.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case p := <-h.register:
			h.connect(p)

		case p := <-h.unregister:
			h.leave(p)

		case in := <-h.inbound:
			h.handle(in.peer, in.env)

		case b := <-h.beats:
			if h.isMember(b.peer) && b.seq == b.peer.beatSeq {
				h.keepAlive(b.peer)
			}

		case reply := <-h.queries:
			reply <- h.snapshot()
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for key, room := range h.rooms {
		for _, p := range room {
			h.cancelKeepAlive(p)
			h.closePeer(p)
		}
		delete(h.rooms, key)
	}
}

func (h *Hub) connect(p *Peer) {
	// A reconnect with a known id replaces the stale connection.
	for _, room := range h.rooms {
		if old, ok := room[p.ID]; ok {
			h.log.Debug("replacing connection", "peer", p.ID)
			h.leave(old)
			break
		}
	}

	p.open = true
	p.lastBeat = h.clock.Now()

	h.join(p)
	h.keepAlive(p)

	env, _ := protocol.NewEnvelope(protocol.TypeDisplayName, "", protocol.DisplayNamePayload{
		PeerID:      p.ID,
		DisplayName: p.Identity.DisplayName,
		DeviceName:  p.Identity.DeviceName,
	})
	h.send(p, env)
}

func (h *Hub) join(p *Peer) {
	room, ok := h.rooms[p.OriginKey]
	if !ok {
		room = make(Room)
		h.rooms[p.OriginKey] = room
	}

	joined, _ := protocol.NewEnvelope(protocol.TypePeerJoined, "", protocol.PeerJoinedPayload{Peer: p.PublicInfo()})
	existing := make([]protocol.PeerInfo, 0, len(room))
	for _, other := range room.others(p.ID) {
		h.send(other, joined)
		existing = append(existing, other.PublicInfo())
	}

	snapshot, _ := protocol.NewEnvelope(protocol.TypePeers, "", protocol.PeersPayload{Peers: existing})
	h.send(p, snapshot)

	room[p.ID] = p
	h.log.Info("peer joined", "peer", p.ID, "origin", p.OriginKey, "members", len(room))
}

// leave removes p from its room and closes its connection. It is a no-op
// for peers that are not (or no longer) the registered member for their id.
func (h *Hub) leave(p *Peer) {
	if !h.isMember(p) {
		h.closePeer(p)
		return
	}
	room := h.rooms[p.OriginKey]

	h.cancelKeepAlive(p)
	delete(room, p.ID)
	h.closePeer(p)

	if len(room) == 0 {
		delete(h.rooms, p.OriginKey)
		h.log.Info("room removed", "origin", p.OriginKey)
		return
	}

	left, _ := protocol.NewEnvelope(protocol.TypePeerLeft, "", protocol.PeerLeftPayload{PeerID: p.ID})
	for _, other := range room.others(p.ID) {
		h.send(other, left)
	}
	h.log.Info("peer left", "peer", p.ID, "origin", p.OriginKey, "members", len(room))
}

func (h *Hub) handle(p *Peer, env protocol.Envelope) {
	if !h.isMember(p) {
		return
	}

	switch env.Type {
	case protocol.TypeDisconnect:
		h.leave(p)
		return
	case protocol.TypePong:
		p.lastBeat = h.clock.Now()
		return
	}

	if env.To == "" {
		return
	}

	recipient, ok := h.rooms[p.OriginKey][env.To]
	if !ok {
		h.log.Debug("dropping message for unknown recipient", "peer", p.ID, "to", env.To, "type", env.Type)
		return
	}

	env.To = ""
	env.Sender = p.ID
	h.send(recipient, env)
}

// keepAlive evicts p if it has been silent too long, otherwise schedules the
// next check and probes it.
func (h *Hub) keepAlive(p *Peer) {
	h.cancelKeepAlive(p)

	if h.clock.Now().Sub(p.lastBeat) > 2*h.period {
		h.log.Info("heartbeat timeout", "peer", p.ID)
		h.leave(p)
		return
	}

	p.beatSeq++
	b := beat{peer: p, seq: p.beatSeq}
	p.timer = h.clock.AfterFunc(h.period, func() {
		select {
		case h.beats <- b:
		case <-h.done:
		}
	})

	ping, _ := protocol.NewEnvelope(protocol.TypePing, "", nil)
	h.send(p, ping)
}

func (h *Hub) cancelKeepAlive(p *Peer) {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (h *Hub) isMember(p *Peer) bool {
	room, ok := h.rooms[p.OriginKey]
	return ok && room[p.ID] == p
}

// send never blocks the hub. Messages to closed peers or peers with a full
// buffer are dropped.
func (h *Hub) send(p *Peer, env protocol.Envelope) {
	if p == nil || !p.open {
		return
	}
	select {
	case p.send <- env:
	default:
		h.log.Warn("send buffer full, dropping message", "peer", p.ID, "type", env.Type)
	}
}

func (h *Hub) closePeer(p *Peer) {
	if !p.open {
		return
	}
	p.open = false
	close(p.send)
}

func (h *Hub) snapshot() map[string][]string {
	out := make(map[string][]string, len(h.rooms))
	for key, room := range h.rooms {
		ids := make([]string, 0, len(room))
		for id := range room {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[key] = ids
	}
	return out
}
