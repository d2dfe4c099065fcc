package protocol

// Frame is a single message on a peer transport channel. Binary frames carry
// raw file bytes, the rest carry encoded control messages.
type Frame struct {
	Binary bool
	Data   []byte
}

// ChannelHandlers receive the lifecycle events of a Channel. Nil fields are
// ignored.
type ChannelHandlers struct {
	OnOpen  func()
	OnFrame func(Frame)
	OnClose func()
}

// Channel is an ordered, reliable, message-oriented pipe to one remote peer.
//
// Implementations exist for direct data channels and for frames relayed over
// the signaling server. Both deliver frames in send order and report open and
// close transitions through the registered handlers.
type Channel interface {
	// PeerID identifies the remote side.
	PeerID() string

	// SetHandlers installs the event callbacks. It should be called before
	// the channel is started.
	SetHandlers(h ChannelHandlers)

	// Send queues a frame. It fails without side effects on the remote
	// when the channel is not open.
	Send(f Frame) error

	// IsOpen reports whether Send can currently succeed.
	IsOpen() bool

	// Refresh re-establishes the channel if it is neither open nor
	// connecting. It is a no-op for channels that cannot reconnect.
	Refresh()

	// Close tears the channel down for good.
	Close() error
}
