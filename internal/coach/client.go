// Package coach talks to the coach relay and keeps the chat transcript.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrRateLimited is returned when the relay answers 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExhausted is returned when the relay answers 402.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrUnavailable covers every other failure, including malformed replies.
	ErrUnavailable = errors.New("coach unavailable")
)

// maxResponseBodySize bounds how much of a relay reply is read.
const maxResponseBodySize = 1 << 20

// RelayError carries the HTTP status and server message of a failed call.
// It unwraps to one of the sentinel errors above.
type RelayError struct {
	Status  int
	Message string
	kind    error
}

func (e *RelayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.kind, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.kind, e.Status, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.kind
}

// Sender sends a conversation to the coach and returns its reply.
type Sender interface {
	Send(ctx context.Context, history []domain.ChatMessage, mood domain.Mood, kind domain.RequestKind) (string, error)
}

// ClientConfig holds relay client settings.
type ClientConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client is an HTTP Sender for the coach relay.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a relay client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// RelayRequest is the body sent to the relay.
type RelayRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	Mood     string               `json:"mood"`
	Type     domain.RequestKind   `json:"type"`
}

// RelayResponse is the body returned by the relay.
type RelayResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Send posts the conversation and returns the assistant's reply text.
func (c *Client) Send(ctx context.Context, history []domain.ChatMessage, mood domain.Mood, kind domain.RequestKind) (string, error) {
	if history == nil {
		history = []domain.ChatMessage{}
	}
	body, err := json.Marshal(RelayRequest{
		Messages: history,
		Mood:     mood.WireValue(),
		Type:     kind,
	})
	if err != nil {
		return "", fmt.Errorf("marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build relay request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Coach relay request failed", "request_id", reqID, "type", kind, "error", err)
		return "", &RelayError{Message: err.Error(), kind: ErrUnavailable}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close relay response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", &RelayError{Status: resp.StatusCode, Message: err.Error(), kind: ErrUnavailable}
	}

	var out RelayResponse
	decodeErr := json.Unmarshal(data, &out)

	c.logger.Info("Coach relay response",
		"request_id", reqID,
		"type", kind,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RelayError{Status: resp.StatusCode, Message: out.Error, kind: classify(resp.StatusCode)}
	}
	if decodeErr != nil {
		return "", &RelayError{Status: resp.StatusCode, Message: "malformed response: " + decodeErr.Error(), kind: ErrUnavailable}
	}
	if out.Message == "" {
		return "", &RelayError{Status: resp.StatusCode, Message: "response missing message", kind: ErrUnavailable}
	}
	return out.Message, nil
}

func classify(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExhausted
	default:
		return ErrUnavailable
	}
}
