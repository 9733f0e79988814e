// Package hub is a Go client for the feedback API.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// IngestFeedbackRequest is the body of POST /v1/feedback.
// This mirrors the server model so callers do not import server internals.
type IngestFeedbackRequest struct {
	TenantID string   `json:"tenantId"` //nolint:tagliatelle // API contract
	Rate     *float64 `json:"rate,omitempty"`
	Text     string   `json:"text"`
}

// FeedbackRecord is a stored, enriched piece of feedback.
type FeedbackRecord struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Rate        *float64  `json:"rate,omitempty"`
	Description string    `json:"description"`
	Sentiment   string    `json:"sentiment"`
	AIResponse  string    `json:"ai_response"`
	CreatedAt   time.Time `json:"created_at"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// ClientOptions configures the API client
type ClientOptions struct {
	// BaseURL is the server root, e.g. http://localhost:8080
	BaseURL string
	// APIKey is sent as a bearer token
	APIKey string
	// RetryMax is the maximum number of retries (default: 3)
	RetryMax int
	// Timeout is the per-attempt HTTP timeout (default: 90 seconds; ingestion waits on model calls)
	Timeout time.Duration
}

// Client calls the feedback API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// NewClient creates a new API client
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 90 * time.Second
	}

	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.CheckRetry = checkRetry
	retryClient.Logger = nil // Disable logging by default

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: retryClient,
	}
}

// checkRetry retries transport errors, 429 and gateway errors. A plain 500 is not retried:
// ingestion is not idempotent and the server may already have stored the record.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	default:
		return false, nil
	}
}

// IngestFeedback submits one piece of feedback and returns the enriched record.
func (c *Client) IngestFeedback(ctx context.Context, req *IngestFeedbackRequest) (*FeedbackRecord, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var record FeedbackRecord
	if err := c.post(ctx, "/v1/feedback", body, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, dst any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		}

		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return nil
}
