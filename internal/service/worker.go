package service

import (
	"context"
	"fmt"
	"time"

	"sheltermail/internal/mailer"
	"sheltermail/internal/metrics"
	"sheltermail/internal/model"
	"sheltermail/internal/render"
	"sheltermail/internal/repository"
	v1 "sheltermail/pkg/api/v1"
	"sheltermail/pkg/logger"

	"go.uber.org/zap"
)

// BatchSummary is the outcome of one delivery batch.
type BatchSummary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// DeliveryWorker drains the outbox in bounded batches. It is normally driven
// by the cron trigger endpoint; Run provides a built-in poll loop for
// deployments without an external scheduler.
type DeliveryWorker struct {
	repo        repository.OutboxInterface
	registry    *render.Registry
	sender      mailer.Sender
	observer    metrics.DeliveryObserver
	hub         *Hub
	batchSize   int
	interval    time.Duration
	sendTimeout time.Duration
}

func NewDeliveryWorker(
	repo repository.OutboxInterface,
	registry *render.Registry,
	sender mailer.Sender,
	observer metrics.DeliveryObserver,
	hub *Hub,
	batchSize int,
	interval time.Duration,
	sendTimeout time.Duration,
) *DeliveryWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &DeliveryWorker{
		repo:        repo,
		registry:    registry,
		sender:      sender,
		observer:    observer,
		hub:         hub,
		batchSize:   batchSize,
		interval:    interval,
		sendTimeout: sendTimeout,
	}
}

// Run polls the queue on the configured interval until ctx is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	logger.Info("delivery worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("delivery worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunBatch(ctx, w.batchSize); err != nil {
				logger.Error("delivery batch failed", zap.Error(err))
			}
		}
	}
}

// RunBatch claims up to batchSize pending messages and attempts delivery for
// each one independently. Only a claim failure is returned as an error;
// per-message failures are recorded on the row and counted in the summary.
func (w *DeliveryWorker) RunBatch(ctx context.Context, batchSize int) (BatchSummary, error) {
	if batchSize <= 0 {
		batchSize = w.batchSize
	}

	msgs, err := w.repo.Claim(ctx, batchSize)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("claim pending messages: %w", err)
	}

	summary := BatchSummary{Processed: len(msgs)}
	if len(msgs) == 0 {
		return summary, nil
	}

	start := time.Now()
	for i := range msgs {
		msg := &msgs[i]
		w.observer.ObserveQueueLag(time.Since(msg.CreatedAt).Seconds())

		if err := w.dispatch(ctx, msg); err != nil {
			logger.Warn("message delivery failed",
				zap.Uint64("id", msg.ID),
				zap.String("template_key", msg.TemplateKey),
				zap.Error(err))
			// Record the outcome before moving on; a failure here must not
			// stop the rest of the batch. The attempt count is absolute,
			// taken from the claimed snapshot, so a replayed update is
			// harmless.
			if mErr := w.repo.MarkFailed(ctx, msg.ID, msg.Attempts+1, err.Error()); mErr != nil {
				logger.Error("failed to mark message failed",
					zap.Uint64("id", msg.ID), zap.Error(mErr))
			}
			summary.Failed++
			w.observer.RecordFailed()
			w.publish(msg, model.StatusFailed, err.Error())
			continue
		}

		if mErr := w.repo.MarkSent(ctx, msg.ID); mErr != nil {
			logger.Error("failed to mark message sent",
				zap.Uint64("id", msg.ID), zap.Error(mErr))
		}
		summary.Sent++
		w.observer.RecordSent()
		w.publish(msg, model.StatusSent, "")
		logger.Debug("message delivered",
			zap.Uint64("id", msg.ID), zap.String("template_key", msg.TemplateKey))
	}
	w.observer.ObserveBatchDuration(time.Since(start).Seconds())

	logger.Info("delivery batch finished",
		zap.Int("processed", summary.Processed),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (w *DeliveryWorker) dispatch(ctx context.Context, msg *model.OutboxMessage) error {
	payload, err := msg.PayloadMap()
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	subject, html, err := w.registry.Render(msg.TemplateKey, render.Payload(payload))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	// A hung provider call must not stall the whole batch.
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if _, err := w.sender.Send(sendCtx, msg.Recipient, subject, html); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (w *DeliveryWorker) publish(msg *model.OutboxMessage, status, errMsg string) {
	if w.hub == nil {
		return
	}
	attempts := msg.Attempts
	if status == model.StatusFailed {
		attempts++
	}
	w.hub.Publish(v1.DeliveryEvent{
		MessageID:   msg.ID,
		Recipient:   msg.Recipient,
		TemplateKey: msg.TemplateKey,
		Status:      status,
		Error:       errMsg,
		Attempts:    attempts,
		At:          time.Now(),
	})
}
