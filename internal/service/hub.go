package service

import (
	"context"
	"sync/atomic"
	"time"

	"sheltermail/internal/buffer"
	"sheltermail/internal/metrics"
	v1 "sheltermail/pkg/api/v1"
)

// Client is one connected SSE watcher.
type Client struct {
	Send chan v1.DeliveryEvent
}

// Hub fans delivery events out to connected operator dashboards and keeps a
// ring of recent events for reconnect catch-up. Slow clients are dropped
// rather than allowed to block the worker.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan v1.DeliveryEvent
	Register   chan *Client
	Unregister chan *Client

	observer  metrics.DeliveryObserver
	buf       *buffer.EventBuffer
	heartbeat time.Duration
	seq       atomic.Int64
	done      chan struct{}
}

func NewHub(observer metrics.DeliveryObserver, heartbeat time.Duration, bufferSize int) *Hub {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan v1.DeliveryEvent, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		observer:   observer,
		buf:        buffer.NewEventBuffer(bufferSize),
		heartbeat:  heartbeat,
		done:       make(chan struct{}),
	}
}

// Done is closed when the broadcast loop has exited; after that no send on
// Register or Unregister will ever be received.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Publish stamps the event with the next sequence number, records it in the
// catch-up buffer and hands it to the broadcast loop. Non-blocking: when the
// broadcast channel is saturated the event is still buffered for catch-up.
func (h *Hub) Publish(ev v1.DeliveryEvent) {
	ev.Seq = h.seq.Add(1)
	h.buf.Add(ev)
	select {
	case h.Broadcast <- ev:
	default:
	}
}

// EventsSince exposes the catch-up buffer to the stream handler.
func (h *Hub) EventsSince(lastSeq int64) ([]v1.DeliveryEvent, bool) {
	return h.buf.GetSince(lastSeq)
}

func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			close(h.done)
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.observer.IncWatchers()
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.observer.DecWatchers()
			}
		case ev := <-h.Broadcast:
			h.push(ev)
		case <-ticker.C:
			h.push(v1.DeliveryEvent{Type: "ping", At: time.Now()})
		}
	}
}

func (h *Hub) push(ev v1.DeliveryEvent) {
	for client := range h.clients {
		select {
		case client.Send <- ev:
		default:
			// Client can't keep up; it reconnects via the catch-up buffer.
			delete(h.clients, client)
			close(client.Send)
			h.observer.DecWatchers()
		}
	}
}
