package buffer

import (
	"sync"
	"testing"
	"time"

	v1 "sheltermail/pkg/api/v1"
)

func TestEventBuffer_Lifecycle(t *testing.T) {
	buf := NewEventBuffer(3)

	// Empty buffer: caught up.
	evs, ok := buf.GetSince(0)
	if !ok || len(evs) != 0 {
		t.Error("empty buffer should return empty slice and ok=true")
	}

	buf.Add(v1.DeliveryEvent{Seq: 1})
	buf.Add(v1.DeliveryEvent{Seq: 2})
	buf.Add(v1.DeliveryEvent{Seq: 3})

	// 0 is just before the oldest event; the buffer still covers it.
	evs, ok = buf.GetSince(0)
	if !ok || len(evs) != 3 {
		t.Errorf("GetSince(0) = %d events ok=%v, want 3/true", len(evs), ok)
	}

	// Wrap around: logical contents become [2, 3, 4].
	buf.Add(v1.DeliveryEvent{Seq: 4})

	// Seq 0 fell off the ring; continuity is broken.
	if _, ok = buf.GetSince(0); ok {
		t.Error("GetSince(0) should require resync after wrap")
	}

	evs, ok = buf.GetSince(2)
	if !ok || len(evs) != 2 || evs[0].Seq != 3 || evs[1].Seq != 4 {
		t.Errorf("GetSince(2) = %+v ok=%v, want [3 4]/true", evs, ok)
	}

	// Fully caught up.
	evs, ok = buf.GetSince(4)
	if !ok || len(evs) != 0 {
		t.Errorf("GetSince(4) = %d events ok=%v, want 0/true", len(evs), ok)
	}
}

func TestEventBuffer_Concurrency(t *testing.T) {
	buf := NewEventBuffer(1000)
	done := make(chan struct{})
	count := 5000

	go func() {
		for i := 1; i <= count; i++ {
			buf.Add(v1.DeliveryEvent{Seq: int64(i)})
			time.Sleep(2 * time.Microsecond)
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastSeq int64
			// Watchdog only; must cover the producer's full run, which
			// can take minutes on single-CPU hosts with coarse timers.
			timeout := time.After(5 * time.Minute)

			for {
				select {
				case <-done:
					return
				case <-timeout:
					t.Error("test timed out")
					return
				default:
					evs, ok := buf.GetSince(lastSeq)
					if ok && len(evs) > 0 {
						lastSeq = evs[len(evs)-1].Seq
					}
					// On !ok a real client would re-list; here we just retry.
				}
			}
		}()
	}

	wg.Wait()
}
