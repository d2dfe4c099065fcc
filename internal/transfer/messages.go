package transfer

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// Message is a control message on the transfer channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// Header announces the file whose chunks follow.
type Header struct {
	Name string `msgpack:"name"`
	Mime string `msgpack:"mime"`
	Size int64  `msgpack:"size"`
}

// PartitionPayload marks the end of a partition at the given file offset.
type PartitionPayload struct {
	Offset int64 `msgpack:"offset"`
}

// ProgressPayload reports the receiver's progress in [0, 1].
type ProgressPayload struct {
	Progress float64 `msgpack:"progress"`
}

// TextPayload carries a base64 encoding of UTF-8 text.
type TextPayload struct {
	Text string `msgpack:"text"`
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a new Message with the given type and payload.
// A nil payload leaves the payload empty.
func NewMessage(t string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// EncodeFrame packs a control message into a channel frame.
func EncodeFrame(t string, payload any) (protocol.Frame, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return protocol.Frame{}, NewError("create message", err)
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return protocol.Frame{}, NewError("marshal message", err)
	}
	return protocol.Frame{Data: data}, nil
}

// ParseMessage decodes a control frame.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, NewError("parse message", err)
	}
	return &msg, nil
}

// EncodeText base64 encodes the UTF-8 bytes of s.
func EncodeText(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeText reverses EncodeText.
func DecodeText(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", NewError("decode text", err)
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidText
	}
	return string(b), nil
}
