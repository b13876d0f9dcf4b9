package memews

import (
	"encoding/json"
	"fmt"

	"github.com/memecanvas/memecanvas/meme/placement"
)

// Viewer protocol message types. The server sends connection_ack, then one
// snapshot, then a placementCreated per new drop. The only client message is
// ping.
const (
	MsgConnectionAck    = "connection_ack"
	MsgSnapshot         = "snapshot"
	MsgPlacementCreated = "placementCreated"
	MsgNewMeme          = "newMeme" // legacy clients
	MsgPing             = "ping"
	MsgPong             = "pong"
	MsgError            = "error"
)

type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseMessage parses a viewer protocol message.
func ParseMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("missing message type")
	}
	return &msg, nil
}

func AckMessage() []byte {
	b, _ := json.Marshal(Message{Type: MsgConnectionAck})
	return b
}

// PongMessage echoes the id of the ping it answers.
func PongMessage(id string) []byte {
	b, _ := json.Marshal(Message{ID: id, Type: MsgPong})
	return b
}

func SnapshotMessage(placements []placement.Placement) ([]byte, error) {
	if placements == nil {
		placements = []placement.Placement{}
	}
	return payloadMessage(MsgSnapshot, "", placements)
}

// PlacementMessage wraps one placement; the id is the placement id so clients
// can dedup without decoding the payload.
func PlacementMessage(msgType string, p placement.Placement) ([]byte, error) {
	return payloadMessage(msgType, p.ID, p)
}

func ErrorMessage(errMsg string) []byte {
	payload, _ := json.Marshal(map[string]string{"message": errMsg})
	b, _ := json.Marshal(Message{
		Type:    MsgError,
		Payload: payload,
	})
	return b
}

func payloadMessage(msgType, id string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %v payload: %w", msgType, err)
	}
	b, err := json.Marshal(Message{
		ID:      id,
		Type:    msgType,
		Payload: payloadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling %v message: %w", msgType, err)
	}
	return b, nil
}
