package buffer

import (
	"sort"
	"sync"

	v1 "sheltermail/pkg/api/v1"
)

// EventBuffer is a bounded ring of recent delivery events. Stream clients
// that reconnect ask for everything after their last seen sequence; if the
// ring has already overwritten that range they get ok=false and must fall
// back to listing messages instead.
type EventBuffer struct {
	mu     sync.RWMutex
	events []v1.DeliveryEvent
	size   int
	head   int
	isFull bool
}

func NewEventBuffer(size int) *EventBuffer {
	if size <= 0 {
		size = 1000
	}
	return &EventBuffer{
		events: make([]v1.DeliveryEvent, size),
		size:   size,
	}
}

func (b *EventBuffer) Add(ev v1.DeliveryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.head] = ev
	b.head = (b.head + 1) % b.size
	if b.head == 0 {
		b.isFull = true
	}
}

// GetSince returns all buffered events with Seq > lastSeq in order. The
// second return is false when lastSeq has already fallen off the ring and
// the caller cannot be caught up from the buffer alone.
func (b *EventBuffer) GetSince(lastSeq int64) ([]v1.DeliveryEvent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.head
	start := 0
	if b.isFull {
		count = b.size
		start = b.head
	}

	if count == 0 {
		return nil, true
	}

	oldestSeq := b.events[start].Seq
	if lastSeq < oldestSeq-1 {
		return nil, false
	}

	// Logical index i maps to physical index (start + i) % size.
	idx := sort.Search(count, func(i int) bool {
		return b.events[(start+i)%b.size].Seq > lastSeq
	})
	if idx == count {
		return nil, true
	}

	result := make([]v1.DeliveryEvent, 0, count-idx)
	for i := idx; i < count; i++ {
		result = append(result, b.events[(start+i)%b.size])
	}
	return result, true
}
