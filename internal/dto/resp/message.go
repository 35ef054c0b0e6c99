package resp

import (
	"time"

	v1 "sheltermail/pkg/api/v1"
)

type EnqueueMessageResponse struct {
	ID        uint64    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RunBatchResponse mirrors what the scheduler sees: ok plus batch counts, or
// ok=false with an error when the claim phase itself fails.
type RunBatchResponse struct {
	OK        bool   `json:"ok"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

type MessageItem struct {
	ID          uint64     `json:"id"`
	Recipient   string     `json:"recipient"`
	TemplateKey string     `json:"template_key"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at"`
}

type ListMessagesResponse struct {
	Data  []MessageItem `json:"data"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type EventsResponse struct {
	Data    []v1.DeliveryEvent `json:"data"`
	Resync  bool               `json:"resync"`
	LastSeq int64              `json:"last_seq"`
}
