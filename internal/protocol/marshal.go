package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message represents the envelope every socket or bus frame travels in.
// ClientID addresses a peer on a shared broadcast bus and is empty on
// point-to-point sockets.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// EncodeRequest wraps a request in its envelope.
func EncodeRequest(req Request) (*Message, error) {
	if !req.Type.IsRequest() {
		return nil, fmt.Errorf("not a request type: %q", req.Type)
	}
	msg, err := NewMessage(req.Type, req)
	if err != nil {
		return nil, err
	}
	msg.RequestID = req.RequestID
	return msg, nil
}

// DecodeRequest unwraps a client request.
func DecodeRequest(msg *Message) (Request, error) {
	if !msg.Type.IsRequest() {
		return Request{}, fmt.Errorf("unknown request type %q", msg.Type)
	}
	var req Request
	if len(msg.Data) > 0 && string(msg.Data) != "null" {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return Request{}, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
	}
	req.Type = msg.Type
	req.RequestID = msg.RequestID
	return req, nil
}

// EncodeResponse wraps a response in its envelope.
func EncodeResponse(resp Response) (*Message, error) {
	msg, err := NewMessage(TypeResponse, resp)
	if err != nil {
		return nil, err
	}
	msg.RequestID = resp.RequestID
	return msg, nil
}

// EncodeUpdate wraps an update in its envelope.
func EncodeUpdate(u Update) (*Message, error) {
	return NewMessage(TypeUpdate, u)
}

// Decode unmarshals the payload of msg into v.
func Decode(msg *Message, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return nil
}
