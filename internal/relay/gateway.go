package relay

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
)

// ErrMissingAPIKey is returned when no gateway key is configured.
var ErrMissingAPIKey = errors.New("GATEWAY_API_KEY is not configured")

// maxGatewayBody bounds how much of a gateway reply is read.
const maxGatewayBody = 4 << 20

// GatewayError is a non-2xx answer from the completions API.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned status %d", e.Status)
}

// Completer produces the assistant reply for a prepared conversation.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// GatewayConfig configures an OpenAI-compatible completions client.
type GatewayConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gateway calls an OpenAI-compatible /v1/chat/completions endpoint.
type Gateway struct {
	cfg        GatewayConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGateway creates a completions client.
func NewGateway(cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type completionRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends messages to the gateway and returns the first choice.
func (g *Gateway) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if g.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(completionRequest{Model: g.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gateway: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Debug("failed to close gateway response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		return "", fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &GatewayError{Status: resp.StatusCode, Body: string(data)}
	}

	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("gateway response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
