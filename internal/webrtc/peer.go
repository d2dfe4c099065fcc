// Package webrtc drives a direct data channel to one remote peer, negotiated
// over the signaling relay.
package webrtc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// ChannelLabel names the single data channel a caller opens.
const ChannelLabel = "data-channel"

var (
	ErrNoConnection   = errors.New("no peer connection")
	ErrChannelNotOpen = errors.New("channel not open")
	ErrPeerClosed     = errors.New("peer closed")
)

// State is the negotiation state of an RTCPeer.
type State int

const (
	StateIdle State = iota
	StateOffering
	StateAwaitingOffer
	StateConnected
	StateChannelOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAwaitingOffer:
		return "awaiting-offer"
	case StateConnected:
		return "connected"
	case StateChannelOpen:
		return "channel-open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Signaler relays negotiation messages to the remote peer.
type Signaler interface {
	Send(env protocol.Envelope) error
}

// Options configure an RTCPeer.
type Options struct {
	// Config is passed to every new peer connection.
	Config pion.Configuration

	// API overrides the default pion API, e.g. to tune the setting engine.
	API *pion.API

	Logger *slog.Logger
}

// RTCPeer is one side of a direct channel. The caller opens the data channel
// and re-establishes it whenever it closes. The callee only reacts to
// offers.
//
// Every peer connection belongs to a generation. Callbacks from an older
// generation are ignored, so a connection that fails and then closes is
// handled once.
type RTCPeer struct {
	peerID   string
	signaler Signaler
	opts     Options
	log      *slog.Logger

	mu       sync.Mutex
	isCaller bool
	state    State
	gen      uint64
	pc       *pion.PeerConnection
	dc       *pion.DataChannel
	descSent bool
	pending  []pion.ICECandidateInit
	shut     bool
	handlers protocol.ChannelHandlers
}

var _ protocol.Channel = (*RTCPeer)(nil)

// NewCaller returns a peer that will offer a connection to peerID on the
// first Refresh.
func NewCaller(peerID string, signaler Signaler, opts Options) *RTCPeer {
	return newPeer(peerID, signaler, opts, true)
}

// NewCallee returns a peer that waits for peerID to send an offer.
func NewCallee(peerID string, signaler Signaler, opts Options) *RTCPeer {
	p := newPeer(peerID, signaler, opts, false)
	p.state = StateAwaitingOffer
	return p
}

func newPeer(peerID string, signaler Signaler, opts Options, caller bool) *RTCPeer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &RTCPeer{
		peerID:   peerID,
		signaler: signaler,
		opts:     opts,
		log:      log.With("peer", peerID),
		isCaller: caller,
	}
}

func (p *RTCPeer) PeerID() string { return p.peerID }

func (p *RTCPeer) SetHandlers(h protocol.ChannelHandlers) {
	p.mu.Lock()
	p.handlers = h
	p.mu.Unlock()
}

// State returns the current negotiation state.
func (p *RTCPeer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsCaller reports whether this side opens the channel.
func (p *RTCPeer) IsCaller() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isCaller
}

func (p *RTCPeer) IsOpen() bool {
	return p.State() == StateChannelOpen
}

// Send writes a frame to the data channel. When the channel is not open the
// frame is dropped and a reconnect is attempted.
func (p *RTCPeer) Send(f protocol.Frame) error {
	p.mu.Lock()
	dc, open := p.dc, p.state == StateChannelOpen
	p.mu.Unlock()

	if !open || dc == nil {
		p.Refresh()
		return ErrChannelNotOpen
	}
	if f.Binary {
		return dc.Send(f.Data)
	}
	return dc.SendText(string(f.Data))
}

// Refresh starts a new negotiation if this side is the caller and the
// channel is neither open nor being set up.
func (p *RTCPeer) Refresh() {
	p.mu.Lock()
	busy := p.state == StateOffering || p.state == StateConnected || p.state == StateChannelOpen
	if p.shut || !p.isCaller || busy {
		p.mu.Unlock()
		return
	}
	p.state = StateOffering
	p.mu.Unlock()

	p.connect()
}

// Close tears the connection down for good.
func (p *RTCPeer) Close() error {
	p.mu.Lock()
	if p.shut {
		p.mu.Unlock()
		return nil
	}
	p.shut = true
	p.gen++
	wasOpen := p.state == StateChannelOpen
	pc := p.pc
	p.pc, p.dc = nil, nil
	p.state = StateClosed
	onClose := p.handlers.OnClose
	p.mu.Unlock()

	if wasOpen && onClose != nil {
		onClose()
	}
	if pc != nil {
		return pc.Close()
	}
	return nil
}

// HandleSignal applies an offer, answer or ICE candidate from the remote
// peer.
func (p *RTCPeer) HandleSignal(env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeOffer:
		var desc pion.SessionDescription
		if err := env.Decode(&desc); err != nil {
			return err
		}
		return p.acceptOffer(desc)

	case protocol.TypeAnswer:
		var desc pion.SessionDescription
		if err := env.Decode(&desc); err != nil {
			return err
		}
		pc := p.currentPC()
		if pc == nil {
			return ErrNoConnection
		}
		if err := pc.SetRemoteDescription(desc); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}
		return nil

	case protocol.TypeICECandidate:
		var cand pion.ICECandidateInit
		if err := env.Decode(&cand); err != nil {
			return err
		}
		pc := p.currentPC()
		if pc == nil {
			return ErrNoConnection
		}
		if err := pc.AddICECandidate(cand); err != nil {
			p.log.Debug("ignoring ICE candidate", "error", err)
		}
		return nil
	}
	return fmt.Errorf("unexpected signal %q", env.Type)
}

func (p *RTCPeer) isGen(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.gen
}

func (p *RTCPeer) currentPC() *pion.PeerConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pc
}

// connect replaces any existing connection with a fresh one and sends an
// offer.
func (p *RTCPeer) connect() {
	pc, gen, err := p.newConnection(StateOffering, true)
	if err != nil {
		p.log.Warn("failed to start connection", "error", err)
		p.mu.Lock()
		if !p.shut {
			p.state = StateClosed
		}
		p.mu.Unlock()
		return
	}

	ordered := true
	dc, err := pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		p.fail(gen, fmt.Errorf("create data channel: %w", err))
		return
	}
	p.wireChannel(gen, dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		p.fail(gen, fmt.Errorf("create offer: %w", err))
		return
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		p.fail(gen, fmt.Errorf("set local description: %w", err))
		return
	}
	p.sendDescription(gen, protocol.TypeOffer, pc.LocalDescription())
}

// acceptOffer answers an offer on a fresh connection. A new offer always
// means the caller started over.
func (p *RTCPeer) acceptOffer(offer pion.SessionDescription) error {
	pc, gen, err := p.newConnection(StateAwaitingOffer, false)
	if err != nil {
		return err
	}

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		p.wireChannel(gen, dc)
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		p.fail(gen, fmt.Errorf("set remote description: %w", err))
		return err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		p.fail(gen, fmt.Errorf("create answer: %w", err))
		return err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		p.fail(gen, fmt.Errorf("set local description: %w", err))
		return err
	}
	p.sendDescription(gen, protocol.TypeAnswer, pc.LocalDescription())
	return nil
}

// newConnection starts a new generation with its own peer connection and
// closes the previous one.
func (p *RTCPeer) newConnection(state State, caller bool) (*pion.PeerConnection, uint64, error) {
	var (
		pc  *pion.PeerConnection
		err error
	)
	if p.opts.API != nil {
		pc, err = p.opts.API.NewPeerConnection(p.opts.Config)
	} else {
		pc, err = pion.NewPeerConnection(p.opts.Config)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("create peer connection: %w", err)
	}

	p.mu.Lock()
	if p.shut {
		p.mu.Unlock()
		pc.Close()
		return nil, 0, ErrPeerClosed
	}
	p.gen++
	gen := p.gen
	old := p.pc
	wasOpen := p.state == StateChannelOpen
	p.pc, p.dc = pc, nil
	p.state = state
	p.isCaller = caller
	p.descSent = false
	p.pending = nil
	onClose := p.handlers.OnClose
	p.mu.Unlock()

	if wasOpen && onClose != nil {
		onClose()
	}
	if old != nil {
		go old.Close()
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		p.onLocalCandidate(gen, c.ToJSON())
	})
	pc.OnConnectionStateChange(func(s pion.PeerConnectionState) {
		p.log.Debug("connection state changed", "state", s.String())
		switch s {
		case pion.PeerConnectionStateConnected:
			p.mu.Lock()
			if gen == p.gen && p.state != StateChannelOpen {
				p.state = StateConnected
			}
			p.mu.Unlock()
		case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateFailed:
			p.onClosed(gen)
		}
	})

	return pc, gen, nil
}

func (p *RTCPeer) wireChannel(gen uint64, dc *pion.DataChannel) {
	dc.OnOpen(func() {
		p.mu.Lock()
		if gen != p.gen {
			p.mu.Unlock()
			return
		}
		p.dc = dc
		p.state = StateChannelOpen
		onOpen := p.handlers.OnOpen
		p.mu.Unlock()

		p.log.Debug("channel opened")
		if onOpen != nil {
			onOpen()
		}
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		p.mu.Lock()
		current := gen == p.gen
		onFrame := p.handlers.OnFrame
		p.mu.Unlock()

		if current && onFrame != nil {
			onFrame(protocol.Frame{Binary: !msg.IsString, Data: msg.Data})
		}
	})

	dc.OnClose(func() {
		p.onClosed(gen)
	})
}

// onClosed is the shared handler for a closed channel and a failed or
// disconnected connection.
func (p *RTCPeer) onClosed(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.shut {
		p.mu.Unlock()
		return
	}
	p.gen++
	wasOpen := p.state == StateChannelOpen
	pc := p.pc
	p.pc, p.dc = nil, nil
	p.state = StateClosed
	reconnect := p.isCaller
	onClose := p.handlers.OnClose
	p.mu.Unlock()

	p.log.Debug("channel closed", "reconnect", reconnect)
	if wasOpen && onClose != nil {
		onClose()
	}
	if pc != nil {
		go pc.Close()
	}
	if reconnect {
		go p.connect()
	}
}

func (p *RTCPeer) fail(gen uint64, err error) {
	p.log.Warn("negotiation failed", "error", err)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.gen++
	pc := p.pc
	p.pc, p.dc = nil, nil
	p.state = StateClosed
	p.mu.Unlock()

	if pc != nil {
		go pc.Close()
	}
}

// sendDescription relays the local description, then any candidates
// gathered before it, so the remote always sees the description first.
func (p *RTCPeer) sendDescription(gen uint64, typ string, desc *pion.SessionDescription) {
	env, err := protocol.NewEnvelope(typ, p.peerID, desc)
	if err != nil {
		p.fail(gen, err)
		return
	}
	if !p.isGen(gen) {
		return
	}
	if err := p.signaler.Send(env); err != nil {
		p.log.Debug("description not relayed", "type", typ, "error", err)
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.descSent = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, c := range pending {
		p.sendCandidate(c)
	}
}

func (p *RTCPeer) onLocalCandidate(gen uint64, c pion.ICECandidateInit) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	if !p.descSent {
		p.pending = append(p.pending, c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sendCandidate(c)
}

func (p *RTCPeer) sendCandidate(c pion.ICECandidateInit) {
	env, err := protocol.NewEnvelope(protocol.TypeICECandidate, p.peerID, c)
	if err != nil {
		return
	}
	if err := p.signaler.Send(env); err != nil {
		p.log.Debug("candidate not relayed", "error", err)
	}
}
