package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sheltermail/internal/model"
	"sheltermail/internal/repository"
	"sheltermail/internal/trace"
	"sheltermail/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrEnqueue wraps any durable-store failure on the producer path.
	ErrEnqueue = errors.New("outbox enqueue failed")

	ErrInvalidRecipient = errors.New("invalid recipient address")
	ErrEmptyTemplateKey = errors.New("template key is required")

	// ErrNotRequeueable means the message does not exist or is not in the
	// failed state.
	ErrNotRequeueable = errors.New("message is not requeueable")
)

// OutboxService is the producer- and operator-facing surface of the outbox.
// It only ever inserts pending rows and flips failed rows back to pending;
// every other status transition belongs to the worker.
type OutboxService struct {
	repo repository.OutboxInterface
}

func NewOutboxService(repo repository.OutboxInterface) *OutboxService {
	return &OutboxService{repo: repo}
}

// Enqueue durably records one pending message and returns it. It never waits
// on delivery: the worker drains the queue on its own schedule.
func (s *OutboxService) Enqueue(ctx context.Context, recipient, templateKey string, payload map[string]any) (*model.OutboxMessage, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || !strings.Contains(recipient, "@") {
		return nil, ErrInvalidRecipient
	}
	if templateKey == "" {
		return nil, ErrEmptyTemplateKey
	}

	raw := "{}"
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		raw = string(b)
	}

	msg := &model.OutboxMessage{
		Recipient:   recipient,
		TemplateKey: templateKey,
		Payload:     raw,
		Status:      model.StatusPending,
		TraceID:     trace.FromContext(ctx),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		logger.Error("failed to enqueue outbox message",
			zap.String("template_key", templateKey), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrEnqueue, err)
	}

	logger.Debug("outbox message enqueued",
		zap.Uint64("id", msg.ID), zap.String("template_key", templateKey))
	return msg, nil
}

func (s *OutboxService) List(ctx context.Context, status string, offset, limit int) ([]model.OutboxMessage, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, offset, limit)
}

// Requeue puts a failed message back into the pending queue. This is the
// manual retry path; the worker itself never resurrects failed messages.
func (s *OutboxService) Requeue(ctx context.Context, id uint64) error {
	err := s.repo.Requeue(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotRequeueable
	}
	if err != nil {
		return err
	}
	logger.Info("outbox message requeued", zap.Uint64("id", id))
	return nil
}

func (s *OutboxService) Health(ctx context.Context) error {
	return s.repo.PingContext(ctx)
}
