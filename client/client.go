// Package client is the Go SDK used by producer services (adoption and shop
// backends) to enqueue notifications, and by operator tooling to inspect the
// queue and follow the delivery event stream.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	v1 "sheltermail/pkg/api/v1"
)

type Client struct {
	addr       string
	adminToken string
	httpClient *http.Client
}

func New(addr, adminToken string) *Client {
	return &Client{
		addr:       strings.TrimRight(addr, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type enqueueRequest struct {
	Recipient   string         `json:"recipient"`
	TemplateKey string         `json:"template_key"`
	Payload     map[string]any `json:"payload,omitempty"`
}

type enqueueResponse struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Enqueue durably records one notification and returns its id. The call
// returns as soon as the row is written; delivery happens asynchronously.
func (c *Client) Enqueue(ctx context.Context, recipient, templateKey string, payload map[string]any) (uint64, error) {
	body, err := json.Marshal(enqueueRequest{
		Recipient:   recipient,
		TemplateKey: templateKey,
		Payload:     payload,
	})
	if err != nil {
		return 0, fmt.Errorf("encode enqueue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("enqueue request failed: %w", err)
	}
	defer resp.Body.Close()

	var out enqueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode enqueue response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("enqueue rejected with %d: %s", resp.StatusCode, out.Error)
	}
	return out.ID, nil
}

type MessagePage struct {
	Data []struct {
		ID          uint64     `json:"id"`
		Recipient   string     `json:"recipient"`
		TemplateKey string     `json:"template_key"`
		Status      string     `json:"status"`
		Attempts    int        `json:"attempts"`
		LastError   *string    `json:"last_error"`
		CreatedAt   time.Time  `json:"created_at"`
		SentAt      *time.Time `json:"sent_at"`
	} `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func (c *Client) ListMessages(ctx context.Context, status string, page, limit int) (*MessagePage, error) {
	url := fmt.Sprintf("%s/v1/admin/messages?status=%s&page=%d&limit=%d", c.addr, status, page, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Admin-Token", c.adminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list rejected with %d", resp.StatusCode)
	}
	var out MessagePage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return &out, nil
}

// Requeue puts a failed message back in the pending queue.
func (c *Client) Requeue(ctx context.Context, id uint64) error {
	url := fmt.Sprintf("%s/v1/admin/messages/%d/requeue", c.addr, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Token", c.adminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requeue request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("requeue rejected with %d", resp.StatusCode)
	}
	return nil
}

// Watch follows the delivery event stream, delivering events on the returned
// channel until ctx is cancelled. Reconnects with jittered exponential
// backoff, resuming from the last seen sequence.
func (c *Client) Watch(ctx context.Context) <-chan v1.DeliveryEvent {
	out := make(chan v1.DeliveryEvent, 128)

	go func() {
		defer close(out)

		var lastSeq int64
		backoff := time.Second
		const maxBackoff = 30 * time.Second

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			seq, err := c.streamOnce(ctx, lastSeq, out)
			progressed := seq > lastSeq
			if progressed {
				lastSeq = seq
				backoff = time.Second
			}
			if ctx.Err() != nil {
				return
			}
			// Back off on errors and on idle disconnects alike; only a
			// stream that actually moved forward reconnects immediately.
			if err != nil || !progressed {
				jitter := time.Duration(rand.Int63n(int64(backoff / 2)))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff + jitter):
				}
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}
	}()

	return out
}

// streamOnce holds one SSE connection open, forwarding events until the
// server or the context ends it. Returns the highest sequence seen.
func (c *Client) streamOnce(ctx context.Context, lastSeq int64, out chan<- v1.DeliveryEvent) (int64, error) {
	url := fmt.Sprintf("%s/v1/admin/stream?last_seq=%d", c.addr, lastSeq)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return lastSeq, err
	}
	req.Header.Set("X-Admin-Token", c.adminToken)
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout here: the stream is long-lived and bounded by ctx.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return lastSeq, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lastSeq, fmt.Errorf("stream rejected with %d", resp.StatusCode)
	}

	maxSeq := lastSeq
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == `"pong"` || data == `"seq_too_old"` {
			continue
		}

		var ev v1.DeliveryEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Seq > maxSeq {
			maxSeq = ev.Seq
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return maxSeq, ctx.Err()
		}
	}
	return maxSeq, scanner.Err()
}
