package model

import "encoding/json"

// Job is the sidekiq 5 payload relayed through the outbox.
type Job struct {
	Class      string            `json:"class"`
	Queue      string            `json:"queue"`
	Args       []json.RawMessage `json:"args"`
	JID        string            `json:"jid"`
	Retry      bool              `json:"retry"`
	CreatedAt  float64           `json:"created_at"`
	EnqueuedAt float64           `json:"enqueued_at,omitempty"`
}

// RecordArgs is a SerializedRecord as carried in job arguments.
type RecordArgs struct {
	EventID   string `json:"event_id"`
	Data      string `json:"data"`
	Metadata  string `json:"metadata"`
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
}
