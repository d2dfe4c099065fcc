package webrtc

// Transport is how bytes reach a remote peer.
type Transport string

const (
	// TransportDirect uses a WebRTC data channel.
	TransportDirect Transport = "direct"

	// TransportRelayed sends frames through the signaling server.
	TransportRelayed Transport = "relayed"
)

// SelectTransport picks the direct transport only when both ends can open
// data channels.
func SelectTransport(localRTC, remoteRTC bool) Transport {
	if localRTC && remoteRTC {
		return TransportDirect
	}
	return TransportRelayed
}
