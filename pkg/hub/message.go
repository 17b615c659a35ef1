// Package hub fans JSON messages out to websocket clients using the
// channel-based register/broadcast pattern.
package hub

import "encoding/json"

// Message is one pre-encoded text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps already encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// Inbound is the envelope clients send to the server. Payload is decoded by
// whoever handles Type.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseInbound decodes a client frame.
func ParseInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, err
	}
	return in, nil
}
