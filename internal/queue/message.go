package queue

import "encoding/json"

// MessageVersion is the current scan-job payload version.
const MessageVersion = 1

// Message is the match-scan job sent to the worker.
type Message struct {
	LinkID     string `json:"linkId"`
	DocumentID string `json:"documentId"`
	ControlID  string `json:"controlId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
