package repository

import (
	"context"
	"errors"
	"time"

	"sheltermail/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("outbox message not found")

type OutboxInterface interface {
	Create(ctx context.Context, msg *model.OutboxMessage) error
	Claim(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, attempts int, errMsg string) error
	Requeue(ctx context.Context, id uint64) error
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
	List(ctx context.Context, status string, offset, limit int) ([]model.OutboxMessage, int64, error)
	PingContext(ctx context.Context) error
	WithTx(tx *gorm.DB) OutboxInterface
}

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, msg *model.OutboxMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// Claim flips up to limit pending messages to 'sending' and returns them,
// oldest first. The transition is a single conditional bulk update guarded by
// status = pending, so two overlapping invocations can never claim the same
// row: whichever update runs second sees the row already in 'sending' and
// skips it. A per-invocation claim token identifies which rows this caller
// actually won.
func (r *OutboxRepository) Claim(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("status = ?", model.StatusPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	token := uuid.New().String()
	res := r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("status = ? AND id IN ?", model.StatusPending, ids).
		Updates(map[string]any{
			"status":      model.StatusSending,
			"claim_token": token,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var msgs []model.OutboxMessage
	err = r.db.WithContext(ctx).
		Where("claim_token = ? AND status = ?", token, model.StatusSending).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.StatusSent,
			"sent_at":    time.Now(),
			"last_error": nil,
		}).Error
}

// MarkFailed records one failed attempt. attempts is the absolute count
// after this attempt, computed by the caller from its claimed snapshot, so
// replaying the update leaves the row unchanged.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint64, attempts int, errMsg string) error {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	return r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     model.StatusFailed,
			"attempts":   attempts,
			"last_error": errMsg,
		}).Error
}

// Requeue resets a failed message to pending for another delivery cycle.
// Attempts and last_error are kept so the history of the message is visible.
// Only operators call this; the worker never requeues on its own.
func (r *OutboxRepository) Requeue(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ? AND status = ?", id, model.StatusFailed).
		Updates(map[string]any{
			"status":      model.StatusPending,
			"claim_token": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReclaimStale requeues messages stuck in 'sending' longer than olderThan,
// which happens when a worker dies between claim and outcome recording.
// Reclaimed messages may be delivered twice; that trade-off is accepted.
func (r *OutboxRepository) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := r.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("status = ? AND updated_at < ?", model.StatusSending, cutoff).
		Updates(map[string]any{
			"status":      model.StatusPending,
			"claim_token": "",
		})
	return res.RowsAffected, res.Error
}

func (r *OutboxRepository) List(ctx context.Context, status string, offset, limit int) ([]model.OutboxMessage, int64, error) {
	var msgs []model.OutboxMessage
	var total int64

	db := r.db.WithContext(ctx).Model(&model.OutboxMessage{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).Order("id DESC").Find(&msgs).Error; err != nil {
		return nil, 0, err
	}

	return msgs, total, nil
}

func (r *OutboxRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *OutboxRepository) WithTx(tx *gorm.DB) OutboxInterface {
	return &OutboxRepository{db: tx}
}
