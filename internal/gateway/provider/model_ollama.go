package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arena/internal/logger"
	"arena/internal/pkg/text"
)

// OllamaChatClient talks to an Ollama server's /api/chat endpoint with native
// tool calling. 429/5xx and transport errors are retried with backoff.
type OllamaChatClient struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int

	httpClient *http.Client
}

func NewOllamaChatClient(baseURL, model string, temperature float64, timeout time.Duration, maxRetries int) *OllamaChatClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		// Large models with tools need time.
		timeout = 5 * time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &OllamaChatClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		Temperature: temperature,
		Timeout:     timeout,
		MaxRetries:  maxRetries,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *OllamaChatClient) ID() string {
	return "ollama/" + c.Model
}

type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Stream   bool             `json:"stream"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Options  *ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaChatResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
}

// Chat sends one chat completion request and returns the assistant message.
func (c *OllamaChatClient) Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	req := ollamaChatRequest{
		Model:    c.Model,
		Messages: messages,
		Stream:   false,
		Tools:    tools,
	}
	if c.Temperature > 0 {
		req.Options = &ollamaOptions{Temperature: c.Temperature}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	summary := fmt.Sprintf("model=%s messages=%d tools=%d", c.Model, len(messages), len(tools))
	logger.LogLLMRequest(c.Model, summary, string(payload))

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffDelay(attempt)
			logger.Warnf("ollama chat retry #%d in %s: %v", attempt, wait, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		resp, retryable, err := c.doChat(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("ollama chat (%s): %w", c.Model, lastErr)
}

func (c *OllamaChatClient) doChat(ctx context.Context, payload []byte) (*ChatResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("status=%d: %s", resp.StatusCode, text.Truncate(strings.TrimSpace(string(body)), 300))
	}

	var wire ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	msg := wire.Message
	// Some models emit their tool call as JSON text instead of using the
	// native tool_calls field.
	if len(msg.ToolCalls) == 0 && msg.Content != "" {
		if parsed := ParseTextToolCalls(msg.Content); len(parsed) > 0 {
			msg.ToolCalls = parsed
			msg.Content = ""
		}
	}
	logger.LogLLMResponse(c.Model, text.Truncate(msg.Content, 2000))

	return &ChatResponse{
		Model:        wire.Model,
		Message:      msg,
		InputTokens:  wire.PromptEvalCount,
		OutputTokens: wire.EvalCount,
	}, false, nil
}

func backoffDelay(attempt int) time.Duration {
	base := 800 * time.Millisecond
	wait := base << (attempt - 1)
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}
