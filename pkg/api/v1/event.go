package v1

import "time"

// DeliveryEvent is the wire form of a per-message delivery outcome, pushed
// over the admin SSE stream and replayed from the recent-events buffer.
// Seq is a process-local monotonic sequence used by catch-up clients.
type DeliveryEvent struct {
	Seq         int64     `json:"seq"`
	MessageID   uint64    `json:"message_id"`
	Recipient   string    `json:"recipient"`
	TemplateKey string    `json:"template_key"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts"`
	At          time.Time `json:"at"`
	Type        string    `json:"type,omitempty"` // "ping" for heartbeats
}
