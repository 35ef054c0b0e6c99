package api

import (
	"context"
	"errors"
	"strconv"

	"sheltermail/internal/dto/req"
	"sheltermail/internal/dto/resp"
	"sheltermail/internal/model"
	"sheltermail/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageProvider is the slice of OutboxService the HTTP layer needs.
type MessageProvider interface {
	Enqueue(ctx context.Context, recipient, templateKey string, payload map[string]any) (*model.OutboxMessage, error)
	List(ctx context.Context, status string, offset, limit int) ([]model.OutboxMessage, int64, error)
	Requeue(ctx context.Context, id uint64) error
	Health(ctx context.Context) error
}

type MessageHandler struct {
	service MessageProvider
}

func NewMessageHandler(service MessageProvider) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Enqueue(c *gin.Context) {
	var r req.EnqueueMessageRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := h.service.Enqueue(c.Request.Context(), r.Recipient, r.TemplateKey, r.Payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRecipient) || errors.Is(err, service.ErrEmptyTemplateKey) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(201, resp.EnqueueMessageResponse{
		ID:        msg.ID,
		Status:    msg.Status,
		CreatedAt: msg.CreatedAt,
	})
}

func (h *MessageHandler) List(c *gin.Context) {
	var r req.ListMessagesRequest
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(400, gin.H{"error": "invalid query params"})
		return
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit <= 0 {
		r.Limit = 50
	}

	msgs, total, err := h.service.List(c.Request.Context(), r.Status, (r.Page-1)*r.Limit, r.Limit)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	items := make([]resp.MessageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, resp.MessageItem{
			ID:          m.ID,
			Recipient:   m.Recipient,
			TemplateKey: m.TemplateKey,
			Status:      m.Status,
			Attempts:    m.Attempts,
			LastError:   m.LastError,
			CreatedAt:   m.CreatedAt,
			SentAt:      m.SentAt,
		})
	}
	c.JSON(200, resp.ListMessagesResponse{
		Data:  items,
		Total: total,
		Page:  r.Page,
		Limit: r.Limit,
	})
}

func (h *MessageHandler) Requeue(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.service.Requeue(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotRequeueable) {
			c.JSON(404, gin.H{"error": err.Error()})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": model.StatusPending})
}

func (h *MessageHandler) HealthCheck(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}
