// Package streaming defines the messages pushed to map clients over WebSocket.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/potamap/potamap/pkg/core"
)

// Message type constants of the push protocol.
const (
	TypeMarkers = "markers"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals payload into an envelope of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// MarkersMessage encodes a full marker set replacement.
func MarkersMessage(set core.MarkerSet) ([]byte, error) {
	return Encode(TypeMarkers, set)
}

// DecodeMarkers extracts the marker set from an envelope of type TypeMarkers.
func DecodeMarkers(data []byte) (core.MarkerSet, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return core.MarkerSet{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != TypeMarkers {
		return core.MarkerSet{}, fmt.Errorf("unexpected message type %q", env.Type)
	}
	var set core.MarkerSet
	if err := json.Unmarshal(env.Payload, &set); err != nil {
		return core.MarkerSet{}, fmt.Errorf("decode markers payload: %w", err)
	}
	return set, nil
}
