package signaling

import (
	"errors"
	"sync"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// ErrChannelClosed is returned by RelayedChannel.Send when the channel is
// not open.
var ErrChannelClosed = errors.New("relayed channel is not open")

// Sender is the part of Client a RelayedChannel needs.
type Sender interface {
	Send(env protocol.Envelope) error
}

// RelayedChannel carries transport frames to one peer through the relay,
// for peers that cannot open a direct channel. Incoming frames are fed in
// with Deliver.
type RelayedChannel struct {
	relay  Sender
	peerID string

	mu        sync.Mutex
	handlers  protocol.ChannelHandlers
	open      bool
	suspended bool
	shut      bool
}

var _ protocol.Channel = (*RelayedChannel)(nil)

// NewRelayedChannel returns a closed channel to peerID. Call Refresh to open
// it once handlers are installed.
func NewRelayedChannel(relay Sender, peerID string) *RelayedChannel {
	return &RelayedChannel{relay: relay, peerID: peerID}
}

func (r *RelayedChannel) PeerID() string { return r.peerID }

func (r *RelayedChannel) SetHandlers(h protocol.ChannelHandlers) {
	r.mu.Lock()
	r.handlers = h
	r.mu.Unlock()
}

func (r *RelayedChannel) Send(f protocol.Frame) error {
	if !r.IsOpen() {
		return ErrChannelClosed
	}
	env, err := protocol.NewEnvelope(protocol.TypeFrame, r.peerID, protocol.FramePayload{Binary: f.Binary, Data: f.Data})
	if err != nil {
		return err
	}
	return r.relay.Send(env)
}

func (r *RelayedChannel) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Refresh opens the channel unless it is already open, suspended or closed
// for good.
func (r *RelayedChannel) Refresh() {
	r.mu.Lock()
	if r.open || r.suspended || r.shut {
		r.mu.Unlock()
		return
	}
	r.open = true
	onOpen := r.handlers.OnOpen
	r.mu.Unlock()

	if onOpen != nil {
		onOpen()
	}
}

// Suspend marks the channel closed while the relay connection is down.
// Refresh has no effect until Resume is called.
func (r *RelayedChannel) Suspend() {
	r.mu.Lock()
	r.suspended = true
	if !r.open {
		r.mu.Unlock()
		return
	}
	r.open = false
	onClose := r.handlers.OnClose
	r.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

// Resume lifts a Suspend and reopens the channel.
func (r *RelayedChannel) Resume() {
	r.mu.Lock()
	r.suspended = false
	r.mu.Unlock()
	r.Refresh()
}

// Deliver hands a frame received from the peer to the frame handler.
// Frames arriving while the channel is closed are dropped.
func (r *RelayedChannel) Deliver(f protocol.Frame) {
	r.mu.Lock()
	onFrame := r.handlers.OnFrame
	open := r.open
	r.mu.Unlock()

	if open && onFrame != nil {
		onFrame(f)
	}
}

func (r *RelayedChannel) Close() error {
	r.Suspend()
	r.mu.Lock()
	r.shut = true
	r.mu.Unlock()
	return nil
}
