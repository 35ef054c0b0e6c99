package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sheltermail/internal/config"
)

// Sender is the provider boundary. Implementations carry no retry logic;
// retries are a worker or operator decision.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// ProviderError is returned for any non-2xx response from the email API.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to a Resend-style transactional email HTTP API:
// POST {base}/emails with a bearer token and a {from,to,subject,html} body.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("email provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Cap the echoed body so a misbehaving provider can't bloat last_error.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	return out.ID, nil
}
