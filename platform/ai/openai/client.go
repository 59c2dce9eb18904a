// Package openai provides a minimal OpenAI-compatible chat-completions
// client. It is the AI completion boundary: role-tagged messages in,
// generated text out.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach_backend/platform/config"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Completer is the boundary consumed by the composer. The concrete Client
// talks to an OpenAI-compatible API; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message, temperature float64) (string, error)
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewClient creates a completion client from config.
func NewClient(cfg config.AIConfig) *Client {
	timeout := cfg.GetAITimeout()
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		apiKey:       cfg.GetAIAPIKey(),
		baseURL:      strings.TrimRight(cfg.GetAIBaseURL(), "/"),
		defaultModel: cfg.GetAIDefaultModel(),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// DefaultModel returns the process-wide fallback model identifier.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the messages to the completion API and returns the trimmed
// text of the first choice. An empty model falls back to the configured
// default.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, temperature float64) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API status %d: %s", resp.StatusCode, truncate(string(data), 512))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
