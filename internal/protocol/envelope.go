// Package protocol holds the wire types shared by the relay and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON object exchanged over the signaling WebSocket.
//
// The relay only looks at Type and To. Payload is opaque to it and is
// forwarded untouched.
type Envelope struct {
	Type    string          `json:"type"`
	Sender  string          `json:"sender,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope type constants.
const (
	// Relay -> client
	TypePeers       = "peers"
	TypePeerJoined  = "peer-joined"
	TypePeerLeft    = "peer-left"
	TypePing        = "ping"
	TypeDisplayName = "display-name"

	// Client -> relay, handled locally
	TypePong       = "pong"
	TypeDisconnect = "disconnect"

	// Client -> client, forwarded by the relay
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeFrame        = "frame"
)

// NewEnvelope builds an envelope addressed to `to` with payload encoded as JSON.
// A nil payload produces an envelope without a payload field.
func NewEnvelope(typ, to string, payload any) (Envelope, error) {
	env := Envelope{Type: typ, To: to}
	if payload == nil {
		return env, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	env.Payload = b
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ParseEnvelope decodes a raw WebSocket message. Messages without a type are
// rejected.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope without type")
	}
	return env, nil
}
