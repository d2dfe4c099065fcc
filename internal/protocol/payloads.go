package protocol

// IdentityInfo describes a peer's device as derived from its user agent.
type IdentityInfo struct {
	Model       string `json:"model,omitempty"`
	OS          string `json:"os,omitempty"`
	Browser     string `json:"browser,omitempty"`
	Type        string `json:"type,omitempty"`
	DeviceName  string `json:"deviceName"`
	DisplayName string `json:"displayName"`
}

// PeerInfo is the public view of a peer that other room members see.
type PeerInfo struct {
	ID           string       `json:"id"`
	Name         IdentityInfo `json:"name"`
	RTCSupported bool         `json:"rtcSupported"`
}

// PeersPayload is the snapshot sent to a peer right after it joins.
type PeersPayload struct {
	Peers []PeerInfo `json:"peers"`
}

// PeerJoinedPayload announces a new room member.
type PeerJoinedPayload struct {
	Peer PeerInfo `json:"peer"`
}

// PeerLeftPayload announces that a member is gone.
type PeerLeftPayload struct {
	PeerID string `json:"peerId"`
}

// DisplayNamePayload tells a freshly connected client who it is.
type DisplayNamePayload struct {
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
	DeviceName  string `json:"deviceName"`
}

// FramePayload carries one transport frame through the relay for peers that
// cannot open a direct channel.
type FramePayload struct {
	Binary bool   `json:"binary"`
	Data   []byte `json:"data"`
}
