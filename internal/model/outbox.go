package model

import (
	"encoding/json"
	"time"
)

// OutboxMessage is one durable email notification job. Producers insert rows
// in StatusPending; only the delivery worker moves rows through the rest of
// the lifecycle. Rows are never deleted by the worker.
type OutboxMessage struct {
	ID          uint64     `json:"id" gorm:"primaryKey"`
	Recipient   string     `json:"recipient" gorm:"size:320"`
	TemplateKey string     `json:"template_key" gorm:"size:64;index"`
	Payload     string     `json:"payload" gorm:"type:text"`
	Status      string     `json:"status" gorm:"size:16;index;default:pending"`
	Attempts    int        `json:"attempts" gorm:"default:0"`
	LastError   *string    `json:"last_error" gorm:"type:text"`
	ClaimToken  string     `json:"-" gorm:"size:36;index"`
	TraceID     string     `json:"trace_id" gorm:"size:64"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"-"`
	SentAt      *time.Time `json:"sent_at"`
}

const (
	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// PayloadMap decodes the stored payload JSON. The queue itself never
// validates the payload schema; renderers pick out what they need.
func (m *OutboxMessage) PayloadMap() (map[string]any, error) {
	if m.Payload == "" {
		return map[string]any{}, nil
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
		return nil, err
	}
	return p, nil
}
