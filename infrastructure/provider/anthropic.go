package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicDefaultModel   = "claude-sonnet-4-20250514"
	anthropicAPIVersion     = "2023-06-01"
	anthropicMaxTokens      = 4096
)

// AnthropicProvider generates answers through the Anthropic Messages API.
// Claude has no embedding or transcription endpoints, so this provider is
// paired with a separate embedder.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicModel overrides the default Claude model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) { p.model = model }
}

// WithAnthropicBaseURL points the provider at a different endpoint, used by
// tests and proxies.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(p *AnthropicProvider) { p.baseURL = strings.TrimSuffix(url, "/") }
}

// WithAnthropicMaxRetries caps how many times a retryable request is
// re-attempted.
func WithAnthropicMaxRetries(n int) AnthropicOption {
	return func(p *AnthropicProvider) { p.maxRetries = n }
}

// WithAnthropicRetryDelay sets the delay before the first retry. Each
// subsequent retry doubles it.
func WithAnthropicRetryDelay(d time.Duration) AnthropicOption {
	return func(p *AnthropicProvider) { p.retryDelay = d }
}

// WithAnthropicTimeout sets the per-request HTTP timeout.
func WithAnthropicTimeout(d time.Duration) AnthropicOption {
	return func(p *AnthropicProvider) { p.httpClient.Timeout = d }
}

// NewAnthropicProvider creates an AnthropicProvider with sane retry
// defaults.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		apiKey:     apiKey,
		baseURL:    anthropicDefaultBaseURL,
		model:      anthropicDefaultModel,
		maxRetries: 5,
		retryDelay: 2 * time.Second,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SupportsTextGeneration returns true.
func (p *AnthropicProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding returns false.
func (p *AnthropicProvider) SupportsEmbedding() bool { return false }

// SupportsTranscription returns false.
func (p *AnthropicProvider) SupportsTranscription() bool { return false }

// Close is a no-op; the provider holds no long-lived resources.
func (p *AnthropicProvider) Close() error { return nil }

// Wire types for the Messages API. Unlike the chat completions shape, the
// system prompt travels in its own top-level field.
type anthropicMessagesRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []anthropicTurn `json:"messages"`
}

type anthropicTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatCompletion sends the conversation to the Messages API and returns the
// concatenated text blocks of the reply.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	messages := req.Messages()
	if len(messages) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no messages provided", nil)
	}

	apiReq := anthropicMessagesRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
	}
	if req.MaxTokens() > 0 {
		apiReq.MaxTokens = req.MaxTokens()
	}
	for _, m := range messages {
		if m.Role() == "system" {
			apiReq.System = m.Content()
			continue
		}
		apiReq.Messages = append(apiReq.Messages, anthropicTurn{Role: m.Role(), Content: m.Content()})
	}

	var apiResp anthropicMessagesResponse
	err := p.retry(ctx, func() error {
		var postErr error
		apiResp, postErr = p.postMessages(ctx, apiReq)
		return postErr
	})
	if err != nil {
		return ChatCompletionResponse{}, err
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	usage := NewUsage(
		apiResp.Usage.InputTokens,
		apiResp.Usage.OutputTokens,
		apiResp.Usage.InputTokens+apiResp.Usage.OutputTokens,
	)
	return NewChatCompletionResponse(text.String(), apiResp.StopReason, usage), nil
}

func (p *AnthropicProvider) postMessages(ctx context.Context, req anthropicMessagesRequest) (anthropicMessagesResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return anthropicMessagesResponse{}, NewProviderError("chat_completion", 0, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return anthropicMessagesResponse{}, NewProviderError("chat_completion", 0, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return anthropicMessagesResponse{}, NewProviderError("chat_completion", 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return anthropicMessagesResponse{}, NewProviderError("chat_completion", resp.StatusCode, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error anthropicAPIError `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return anthropicMessagesResponse{}, NewProviderError("chat_completion", resp.StatusCode, apiErr.Error.Message, nil)
		}
		return anthropicMessagesResponse{}, NewProviderError("chat_completion", resp.StatusCode, string(body), nil)
	}

	var apiResp anthropicMessagesResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return anthropicMessagesResponse{}, NewProviderError("chat_completion", 0, "decode response", err)
	}
	return apiResp, nil
}

// retry re-runs fn with doubling delays while the error is retryable.
func (p *AnthropicProvider) retry(ctx context.Context, fn func() error) error {
	delay := p.retryDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryableStatus(lastErr) {
			return lastErr
		}
		if attempt == p.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func retryableStatus(err error) bool {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	switch provErr.StatusCode() {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var (
	_ Provider      = (*AnthropicProvider)(nil)
	_ TextGenerator = (*AnthropicProvider)(nil)
)
