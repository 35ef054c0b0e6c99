package api

import (
	"io"
	"strconv"

	"sheltermail/internal/dto/resp"
	"sheltermail/internal/service"
	v1 "sheltermail/pkg/api/v1"
	"sheltermail/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StreamHandler struct {
	hub *service.Hub
}

func NewStreamHandler(hub *service.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Watch streams delivery outcomes over SSE. Clients pass last_seq to replay
// missed events from the ring buffer before going live; when the buffer no
// longer covers that range they get a reset event and should re-list.
func (h *StreamHandler) Watch(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	var lastSeq int64
	if v := c.Query("last_seq"); v != "" {
		lastSeq, _ = strconv.ParseInt(v, 10, 64)
	}

	logger.Info("stream watcher connected",
		zap.String("ip", c.ClientIP()), zap.Int64("last_seq", lastSeq))

	client := &service.Client{
		Send: make(chan v1.DeliveryEvent, 128),
	}
	// Registration races hub shutdown; once the loop has exited neither
	// channel has a receiver.
	select {
	case h.hub.Register <- client:
	case <-h.hub.Done():
		c.Status(503)
		return
	}
	defer func() {
		select {
		case h.hub.Unregister <- client:
		case <-h.hub.Done():
		}
	}()

	events, ok := h.hub.EventsSince(lastSeq)
	maxSent := lastSeq
	if ok {
		for _, ev := range events {
			c.SSEvent("message", ev)
			maxSent = ev.Seq
		}
	} else {
		c.SSEvent("reset", "seq_too_old")
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-client.Send:
			if !open {
				return false
			}
			if ev.Type == "ping" {
				c.SSEvent("ping", "pong")
				return true
			}
			// Drop events already replayed from the buffer.
			if ev.Seq <= maxSent {
				return true
			}
			c.SSEvent("message", ev)
			maxSent = ev.Seq
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// RecentEvents serves the catch-up buffer over plain JSON for dashboards
// that poll instead of holding an SSE connection.
func (h *StreamHandler) RecentEvents(c *gin.Context) {
	var lastSeq int64
	if v := c.Query("last_seq"); v != "" {
		lastSeq, _ = strconv.ParseInt(v, 10, 64)
	}

	events, ok := h.hub.EventsSince(lastSeq)
	out := resp.EventsResponse{
		Data:    events,
		Resync:  !ok,
		LastSeq: lastSeq,
	}
	if len(events) > 0 {
		out.LastSeq = events[len(events)-1].Seq
	}
	c.JSON(200, out)
}
