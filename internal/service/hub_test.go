package service

import (
	"context"
	"sync"
	"testing"
	"time"

	v1 "sheltermail/pkg/api/v1"
)

func TestHub_PublishReachesWatchers(t *testing.T) {
	hub := NewHub(NopObserver{}, time.Hour, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{Send: make(chan v1.DeliveryEvent, 10)}
	hub.Register <- client

	hub.Publish(v1.DeliveryEvent{MessageID: 7, Status: "sent"})

	select {
	case ev := <-client.Send:
		if ev.MessageID != 7 || ev.Seq == 0 {
			t.Errorf("got event %+v, want message_id=7 with seq set", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher never received the event")
	}
}

func TestHub_EventsSinceReplaysBuffer(t *testing.T) {
	hub := NewHub(NopObserver{}, time.Hour, 100)

	hub.Publish(v1.DeliveryEvent{MessageID: 1, Status: "sent"})
	hub.Publish(v1.DeliveryEvent{MessageID: 2, Status: "failed"})
	hub.Publish(v1.DeliveryEvent{MessageID: 3, Status: "sent"})

	events, ok := hub.EventsSince(1)
	if !ok {
		t.Fatal("EventsSince(1) should be servable from the buffer")
	}
	if len(events) != 2 || events[0].MessageID != 2 || events[1].MessageID != 3 {
		t.Errorf("got %d events %+v, want messages 2 and 3", len(events), events)
	}
}

// A stream handler detaching after the hub has shut down must not block on
// Unregister; Done signals that the loop is gone.
func TestHub_UnregisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(NopObserver{}, time.Hour, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := &Client{Send: make(chan v1.DeliveryEvent, 1)}
	hub.Register <- client
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub never signalled shutdown")
	}
	if _, open := <-client.Send; open {
		t.Error("client channel should be closed on shutdown")
	}

	released := make(chan struct{})
	go func() {
		select {
		case hub.Unregister <- client:
		case <-hub.Done():
		}
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after hub shutdown")
	}
}

func TestHub_Concurrency(t *testing.T) {
	hub := NewHub(NopObserver{}, 100*time.Millisecond, 512)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	clientCount := 50
	msgCount := 200

	var wg sync.WaitGroup
	clients := make([]*Client, clientCount)
	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c := &Client{Send: make(chan v1.DeliveryEvent, msgCount)}
			clients[idx] = c
			hub.Register <- c
		}(i)
	}
	wg.Wait()

	// Drain every client so none gets dropped as slow.
	var drain sync.WaitGroup
	for _, c := range clients {
		drain.Add(1)
		go func(c *Client) {
			defer drain.Done()
			for range c.Send {
			}
		}(c)
	}

	for i := 0; i < msgCount; i++ {
		hub.Publish(v1.DeliveryEvent{MessageID: uint64(i), Status: "sent"})
	}

	// Cancel closes all client channels, letting the drains finish.
	time.Sleep(200 * time.Millisecond)
	cancel()
	drain.Wait()
}
