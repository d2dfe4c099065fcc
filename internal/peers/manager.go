// Package peers keeps one transport channel and one transfer session per
// remote peer, driven by relay events.
package peers

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/signaling"
	"github.com/aman162000/sendBIT.ch/internal/transfer"
	"github.com/aman162000/sendBIT.ch/internal/webrtc"
)

// ErrUnknownPeer is returned when addressing a peer that is not in the room.
var ErrUnknownPeer = errors.New("unknown peer")

// Relay is the part of the signaling client the manager sends through.
type Relay interface {
	Send(env protocol.Envelope) error
}

// Events are the callbacks the manager reports through. Nil fields are
// skipped. Transfer callbacks run with the peer's session locked and must
// not call back into the manager synchronously.
type Events struct {
	Connected    func()
	Disconnected func(retryIn time.Duration)
	DisplayName  func(self protocol.DisplayNamePayload)
	Peers        func(peers []protocol.PeerInfo)
	PeerJoined   func(peer protocol.PeerInfo)
	PeerLeft     func(peerID string)

	// PeerAdded fires when a channel and session exist for a peer, so
	// SendFiles and SendText can address it.
	PeerAdded func(peer protocol.PeerInfo)

	FileProgress func(peerID, name string, progress float64)
	FileReceived func(peerID string, f transfer.ReceivedFile)
	FileSent     func(peerID, name string)
	TextReceived func(peerID, text string)
	Notify       func(peerID, msg string)
}

// Options configure a Manager.
type Options struct {
	// RTCSupported is false when this client connected on the fallback
	// endpoint and can only use relayed channels.
	RTCSupported bool

	// WebRTC is used for every direct channel.
	WebRTC webrtc.Options

	Logger *slog.Logger
}

type remote struct {
	info    protocol.PeerInfo
	channel protocol.Channel
	rtc     *webrtc.RTCPeer
	relayed *signaling.RelayedChannel
	session *transfer.Session
}

// Manager implements signaling.Handler.
type Manager struct {
	relay  Relay
	opts   Options
	events Events
	log    *slog.Logger

	mu     sync.Mutex
	peers  map[string]*remote
	roster map[string]protocol.PeerInfo
}

var _ signaling.Handler = (*Manager)(nil)

// NewManager creates a manager sending through relay.
func NewManager(relay Relay, events Events, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.WebRTC.Logger == nil {
		opts.WebRTC.Logger = log
	}
	return &Manager{
		relay:  relay,
		opts:   opts,
		events: events,
		log:    log,
		peers:  make(map[string]*remote),
		roster: make(map[string]protocol.PeerInfo),
	}
}

// SendFiles queues files for peerID.
func (m *Manager) SendFiles(peerID string, files ...transfer.OutgoingFile) error {
	r := m.get(peerID)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}
	r.session.SendFiles(files...)
	return nil
}

// SendText sends a text message to peerID.
func (m *Manager) SendText(peerID, text string) error {
	r := m.get(peerID)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}
	return r.session.SendText(text)
}

// Pending returns the number of files still queued or in flight for peerID.
func (m *Manager) Pending(peerID string) int {
	r := m.get(peerID)
	if r == nil {
		return 0
	}
	return r.session.Pending()
}

// Peers returns the known remote peers.
func (m *Manager) Peers() []protocol.PeerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.PeerInfo, 0, len(m.peers))
	for _, r := range m.peers {
		out = append(out, r.info)
	}
	return out
}

// Close tears down every channel.
func (m *Manager) Close() {
	m.mu.Lock()
	peers := m.peers
	m.peers = make(map[string]*remote)
	m.mu.Unlock()

	for _, r := range peers {
		r.channel.Close()
	}
}

func (m *Manager) HandleConnected() {
	m.log.Debug("connected to relay")
	if m.events.Connected != nil {
		m.events.Connected()
	}
}

// HandleDisconnected suspends relayed channels until the relay is back.
// Direct channels keep running on their own.
func (m *Manager) HandleDisconnected(retryIn time.Duration) {
	m.mu.Lock()
	var relayed []*signaling.RelayedChannel
	for _, r := range m.peers {
		if r.relayed != nil {
			relayed = append(relayed, r.relayed)
		}
	}
	m.mu.Unlock()

	for _, ch := range relayed {
		ch.Suspend()
	}
	if m.events.Disconnected != nil {
		m.events.Disconnected(retryIn)
	}
	m.notify("", fmt.Sprintf("Connection lost. Retry in %d seconds...", int(retryIn.Seconds())))
}

func (m *Manager) HandleDisplayName(p protocol.DisplayNamePayload) {
	if m.events.DisplayName != nil {
		m.events.DisplayName(p)
	}
}

// HandlePeers reconciles the room snapshot: known peers get their channel
// refreshed, new peers are called, and peers missing from the snapshot left
// while we were away.
func (m *Manager) HandlePeers(peers []protocol.PeerInfo) {
	listed := make(map[string]bool, len(peers))
	for _, info := range peers {
		listed[info.ID] = true
	}

	m.mu.Lock()
	m.roster = make(map[string]protocol.PeerInfo, len(peers))
	for _, info := range peers {
		m.roster[info.ID] = info
		if r, ok := m.peers[info.ID]; ok {
			r.info = info
		}
	}
	var gone []*remote
	for id, r := range m.peers {
		if !listed[id] {
			gone = append(gone, r)
			delete(m.peers, id)
		}
	}
	m.mu.Unlock()

	for _, r := range gone {
		r.channel.Close()
		if m.events.PeerLeft != nil {
			m.events.PeerLeft(r.info.ID)
		}
	}

	for _, info := range peers {
		r, _ := m.getOrCreate(info, true)
		if r.relayed != nil {
			r.relayed.Resume()
			continue
		}
		r.channel.Refresh()
	}

	if m.events.Peers != nil {
		m.events.Peers(peers)
	}
}

// HandlePeerJoined records the newcomer. A direct channel is left to the
// newcomer, which calls us once it has the room snapshot. A relayed one
// needs no negotiation and is opened right away.
func (m *Manager) HandlePeerJoined(info protocol.PeerInfo) {
	m.setInfo(info)
	if webrtc.SelectTransport(m.opts.RTCSupported, info.RTCSupported) == webrtc.TransportRelayed {
		r, created := m.getOrCreate(info, false)
		if created {
			r.relayed.Refresh()
		}
	}

	if m.events.PeerJoined != nil {
		m.events.PeerJoined(info)
	}
}

func (m *Manager) HandlePeerLeft(peerID string) {
	m.mu.Lock()
	r := m.peers[peerID]
	delete(m.peers, peerID)
	delete(m.roster, peerID)
	m.mu.Unlock()

	if r != nil {
		r.channel.Close()
	}
	if m.events.PeerLeft != nil {
		m.events.PeerLeft(peerID)
	}
}

// HandleSignal passes negotiation messages to the peer's direct channel. An
// offer from a peer we have no channel for makes us the callee.
func (m *Manager) HandleSignal(env protocol.Envelope) {
	from := env.Sender

	var r *remote
	if env.Type == protocol.TypeOffer && m.opts.RTCSupported {
		r, _ = m.getOrCreate(protocol.PeerInfo{ID: from, RTCSupported: true}, false)
	} else {
		r = m.get(from)
	}
	if r == nil || r.rtc == nil {
		m.log.Debug("dropping signal", "type", env.Type, "peer", from)
		return
	}

	if err := r.rtc.HandleSignal(env); err != nil {
		m.log.Debug("signal failed", "type", env.Type, "peer", from, "error", err)
	}
}

// HandleFrame feeds a relayed frame to the sender's channel, opening one if
// this is the first we hear from them.
func (m *Manager) HandleFrame(from string, f protocol.Frame) {
	r, created := m.getOrCreate(protocol.PeerInfo{ID: from}, false)
	if r.relayed == nil {
		m.log.Debug("dropping relayed frame for direct peer", "peer", from)
		return
	}
	if created {
		r.relayed.Refresh()
	}
	r.relayed.Deliver(f)
}

func (m *Manager) get(peerID string) *remote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[peerID]
}

func (m *Manager) setInfo(info protocol.PeerInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster[info.ID] = info
	if r, ok := m.peers[info.ID]; ok {
		r.info = info
	}
}

// getOrCreate returns the peer's entry, creating it when missing. What the
// relay announced about the peer takes precedence over info. The transport
// is direct only if both sides support it; caller picks which side of a
// direct channel we take.
func (m *Manager) getOrCreate(info protocol.PeerInfo, caller bool) (*remote, bool) {
	m.mu.Lock()
	if r, ok := m.peers[info.ID]; ok {
		m.mu.Unlock()
		return r, false
	}
	if known, ok := m.roster[info.ID]; ok {
		info = known
	}

	r := &remote{info: info}
	switch webrtc.SelectTransport(m.opts.RTCSupported, info.RTCSupported) {
	case webrtc.TransportDirect:
		if caller {
			r.rtc = webrtc.NewCaller(info.ID, m.relay, m.opts.WebRTC)
		} else {
			r.rtc = webrtc.NewCallee(info.ID, m.relay, m.opts.WebRTC)
		}
		r.channel = r.rtc
	default:
		r.relayed = signaling.NewRelayedChannel(m.relay, info.ID)
		r.channel = r.relayed
	}
	r.session = transfer.NewSession(r.channel, m.sessionEvents(), m.log)
	m.peers[info.ID] = r
	m.mu.Unlock()

	m.log.Debug("peer added", "peer", info.ID, "direct", r.rtc != nil, "caller", caller)
	if m.events.PeerAdded != nil {
		m.events.PeerAdded(info)
	}
	return r, true
}

func (m *Manager) sessionEvents() transfer.Events {
	return transfer.Events{
		FileProgress: m.events.FileProgress,
		FileReceived: m.events.FileReceived,
		FileSent:     m.events.FileSent,
		TextReceived: m.events.TextReceived,
		Notify:       m.events.Notify,
	}
}

func (m *Manager) notify(peerID, msg string) {
	if m.events.Notify != nil {
		m.events.Notify(peerID, msg)
	}
}
