// Enqueue load generator: hammers POST /v1/messages to size the outbox table
// and the rate limiter before a campaign send.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	targetURL   = flag.String("url", "http://localhost:8080/v1/messages", "Enqueue endpoint")
	concurrency = flag.Int("c", 20, "Concurrent producers")
	duration    = flag.Duration("d", 30*time.Second, "Test duration")
	templateKey = flag.String("template", "adoption_request_created", "Template key to enqueue")
)

var (
	enqueued   int64
	rejected   int64
	failed     int64
	latencySum int64 // microseconds
	latencyCnt int64
)

func main() {
	flag.Parse()

	fmt.Printf("enqueue load test: %s, %d producers, %v\n", *targetURL, *concurrency, *duration)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	go reporter(ctx)

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			producer(ctx, id)
		}(i)
	}
	wg.Wait()

	fmt.Printf("done: enqueued=%d rejected=%d failed=%d\n",
		atomic.LoadInt64(&enqueued), atomic.LoadInt64(&rejected), atomic.LoadInt64(&failed))
}

func producer(ctx context.Context, id int) {
	client := &http.Client{Timeout: 5 * time.Second}
	n := 0

	for ctx.Err() == nil {
		n++
		body, _ := json.Marshal(map[string]any{
			"recipient":    fmt.Sprintf("loadtest-%d-%d@example.org", id, n),
			"template_key": *templateKey,
			"payload": map[string]any{
				"adopter_name": fmt.Sprintf("Producer %d", id),
				"animal_name":  "Firulais",
			},
		})

		start := time.Now()
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddInt64(&failed, 1)
			continue
		}
		resp.Body.Close()

		atomic.AddInt64(&latencySum, time.Since(start).Microseconds())
		atomic.AddInt64(&latencyCnt, 1)

		switch {
		case resp.StatusCode == http.StatusCreated:
			atomic.AddInt64(&enqueued, 1)
		case resp.StatusCode == http.StatusTooManyRequests:
			atomic.AddInt64(&rejected, 1)
			time.Sleep(200 * time.Millisecond)
		default:
			atomic.AddInt64(&failed, 1)
		}
	}
}

func reporter(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastEnqueued int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := atomic.LoadInt64(&enqueued)
			latSum := atomic.SwapInt64(&latencySum, 0)
			latCnt := atomic.SwapInt64(&latencyCnt, 0)

			avgMs := float64(0)
			if latCnt > 0 {
				avgMs = float64(latSum) / float64(latCnt) / 1000
			}
			fmt.Printf("rate=%d/s total=%d rejected=%d failed=%d avg=%.1fms\n",
				total-lastEnqueued, total,
				atomic.LoadInt64(&rejected), atomic.LoadInt64(&failed), avgMs)
			lastEnqueued = total
		}
	}
}
