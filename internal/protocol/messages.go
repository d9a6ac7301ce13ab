// ABOUTME: Remote control message type definitions
// ABOUTME: JSON envelope plus payloads for handshake, commands and status
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the remote control protocol version
const Version = 1

// Message types
const (
	TypeClientHello  = "client/hello"
	TypeServerHello  = "server/hello"
	TypeServerError  = "server/error"
	TypePlayerSeek   = "player/seek"
	TypePlayerStop   = "player/stop"
	TypePlayerNext   = "player/next"
	TypePlayerStatus = "player/status"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Incoming is a received message with its payload left undecoded
type Incoming struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the player's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// Error reports a rejected request
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Seek asks the player to move the playhead
type Seek struct {
	PositionMs int64 `json:"position_ms"`
}

// Status reports what the player is doing (sent as player/status)
type Status struct {
	State      string  `json:"state"`
	Path       string  `json:"path,omitempty"`
	Backend    string  `json:"backend,omitempty"`
	Session    string  `json:"session,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Seekable   bool    `json:"seekable"`
	PositionMs int64   `json:"position_ms"`
	LengthMs   *uint32 `json:"length_ms,omitempty"` // absent when unknown
	Title      string  `json:"title,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Album      string  `json:"album,omitempty"`
	Index      int     `json:"index"`
	Queued     int     `json:"queued"`
	Error      string  `json:"error,omitempty"`
}

// Encode marshals a message of the given type
func Encode(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msgType, err)
	}
	return data, nil
}

// Decode parses the envelope of a received message
func Decode(data []byte) (Incoming, error) {
	var in Incoming
	if err := json.Unmarshal(data, &in); err != nil {
		return Incoming{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if in.Type == "" {
		return Incoming{}, fmt.Errorf("message missing type")
	}
	return in, nil
}

// Into decodes the payload into v
func (in Incoming) Into(v interface{}) error {
	if len(in.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", in.Type)
	}
	if err := json.Unmarshal(in.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", in.Type, err)
	}
	return nil
}
