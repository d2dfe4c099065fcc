package signaling

import (
	"log/slog"
	"time"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// Handler receives relay events. Methods are called from the client's read
// goroutine, one at a time, and should not block for long.
type Handler interface {
	HandleConnected()
	HandleDisconnected(retryIn time.Duration)

	HandleDisplayName(p protocol.DisplayNamePayload)
	HandlePeers(peers []protocol.PeerInfo)
	HandlePeerJoined(peer protocol.PeerInfo)
	HandlePeerLeft(peerID string)

	// HandleSignal receives offers, answers and ICE candidates from another
	// peer. env.Sender is the verified origin.
	HandleSignal(env protocol.Envelope)

	// HandleFrame receives a transport frame relayed from another peer.
	HandleFrame(from string, f protocol.Frame)
}

// Dispatch routes one envelope to the matching Handler method. Envelopes
// with undecodable payloads or unknown types are logged and dropped.
func Dispatch(h Handler, env protocol.Envelope, log *slog.Logger) {
	var err error

	switch env.Type {
	case protocol.TypeDisplayName:
		var p protocol.DisplayNamePayload
		if err = env.Decode(&p); err == nil {
			h.HandleDisplayName(p)
		}

	case protocol.TypePeers:
		var p protocol.PeersPayload
		if err = env.Decode(&p); err == nil {
			h.HandlePeers(p.Peers)
		}

	case protocol.TypePeerJoined:
		var p protocol.PeerJoinedPayload
		if err = env.Decode(&p); err == nil {
			h.HandlePeerJoined(p.Peer)
		}

	case protocol.TypePeerLeft:
		var p protocol.PeerLeftPayload
		if err = env.Decode(&p); err == nil {
			h.HandlePeerLeft(p.PeerID)
		}

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		if env.Sender != "" {
			h.HandleSignal(env)
		}

	case protocol.TypeFrame:
		var p protocol.FramePayload
		if err = env.Decode(&p); err == nil && env.Sender != "" {
			h.HandleFrame(env.Sender, protocol.Frame{Binary: p.Binary, Data: p.Data})
		}

	default:
		log.Debug("ignoring relay message", "type", env.Type)
	}

	if err != nil {
		log.Debug("dropping relay message", "type", env.Type, "error", err)
	}
}
