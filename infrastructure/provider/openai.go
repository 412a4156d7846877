package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned fewer embedding
// vectors than texts. Transient upstream load can hide behind a 200 with
// partial data, so this one is retried.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// errUpstreamProviderFailure indicates HTTP 200 whose body was an error
// instead of embedding data. Routing services like OpenRouter do this when
// every upstream is down; the empty response carries no data, no usage and
// no model name. Retrying cannot help, the upstream is gone.
var errUpstreamProviderFailure = errors.New("upstream provider failure")

// OpenAIProvider covers all three provider roles against the OpenAI API:
// Whisper transcription, chat completion and embeddings. It also works
// against OpenAI-compatible endpoints via BaseURL.
type OpenAIProvider struct {
	client             *openai.Client
	chatModel          string
	embeddingModel     string
	transcriptionModel string
	maxRetries         int
	initialDelay       time.Duration
	backoffFactor      float64
}

// OpenAIConfig holds configuration for the OpenAI provider. Zero-valued
// fields fall back to defaults in NewOpenAIProvider.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	EmbeddingModel     string
	TranscriptionModel string
	HTTPClient         *http.Client
	Timeout            time.Duration
	MaxRetries         int
	InitialDelay       time.Duration
	BackoffFactor      float64
}

func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

// NewOpenAIProvider creates a provider from configuration.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	switch {
	case cfg.HTTPClient != nil:
		clientCfg.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIProvider{
		client:             openai.NewClientWithConfig(clientCfg),
		chatModel:          orDefault(cfg.ChatModel, "gpt-4o"),
		embeddingModel:     orDefault(cfg.EmbeddingModel, "text-embedding-3-small"),
		transcriptionModel: orDefault(cfg.TranscriptionModel, "whisper-1"),
		maxRetries:         orDefault(cfg.MaxRetries, 5),
		initialDelay:       orDefault(cfg.InitialDelay, 2*time.Second),
		backoffFactor:      orDefault(cfg.BackoffFactor, 2.0),
	}
}

// SupportsTextGeneration returns true.
func (p *OpenAIProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding returns true.
func (p *OpenAIProvider) SupportsEmbedding() bool { return true }

// SupportsTranscription returns true.
func (p *OpenAIProvider) SupportsTranscription() bool { return true }

// Close is a no-op; the underlying client holds no resources to release.
func (p *OpenAIProvider) Close() error { return nil }

// Transcribe converts audio to text with the transcription model. The
// request filename travels along so the API can infer the audio format from
// its extension.
func (p *OpenAIProvider) Transcribe(ctx context.Context, req TranscriptionRequest) (TranscriptionResponse, error) {
	if len(req.Audio()) == 0 {
		return TranscriptionResponse{}, NewProviderError("transcription", 0, "empty audio", nil)
	}

	var resp openai.AudioResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    p.transcriptionModel,
			FilePath: req.Filename(),
			Reader:   bytes.NewReader(req.Audio()),
		})
		return callErr
	})
	if err != nil {
		return TranscriptionResponse{}, p.wrapError("transcription", err)
	}

	return NewTranscriptionResponse(resp.Text), nil
}

// ChatCompletion generates a chat completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages())),
	}
	for _, m := range req.Messages() {
		apiReq.Messages = append(apiReq.Messages, openai.ChatCompletionMessage{
			Role:    m.Role(),
			Content: m.Content(),
		})
	}
	if req.MaxTokens() > 0 {
		apiReq.MaxTokens = req.MaxTokens()
	}
	if req.Temperature() > 0 {
		apiReq.Temperature = float32(req.Temperature())
	}

	var resp openai.ChatCompletionResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, apiReq)
		return callErr
	})
	if err != nil {
		return ChatCompletionResponse{}, p.wrapError("chat_completion", err)
	}
	if len(resp.Choices) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no choices in response", nil)
	}

	usage := NewUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	return NewChatCompletionResponse(
		resp.Choices[0].Message.Content,
		string(resp.Choices[0].FinishReason),
		usage,
	), nil
}

// Embed requests embeddings for all texts in one API call.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(p.embeddingModel),
			Input: texts,
		})
		if callErr != nil {
			return callErr
		}
		return checkEmbeddingResponse(resp, len(texts))
	})
	if err != nil {
		return EmbeddingResponse{}, p.wrapError("embedding", err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vectors[i][j] = float64(v)
		}
	}

	return NewEmbeddingResponse(vectors, NewUsage(resp.Usage.PromptTokens, 0, resp.Usage.TotalTokens)), nil
}

// checkEmbeddingResponse separates two shapes of bad 200s: a fully empty
// response means the upstream behind a routing provider is down (fatal),
// while a partial one is worth another attempt.
func checkEmbeddingResponse(resp openai.EmbeddingResponse, want int) error {
	if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
		return fmt.Errorf(
			"%w: HTTP 200 with no embedding data, no model, and zero usage",
			errUpstreamProviderFailure,
		)
	}
	if len(resp.Data) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), want)
	}
	return nil
}

// withRetry re-runs fn with exponential backoff while the error is
// retryable.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !p.isRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * p.backoffFactor)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (p *OpenAIProvider) isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// RequestError covers transport-level failures.
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

func (p *OpenAIProvider) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

var (
	_ FullProvider  = (*OpenAIProvider)(nil)
	_ TextGenerator = (*OpenAIProvider)(nil)
	_ Embedder      = (*OpenAIProvider)(nil)
	_ Transcriber   = (*OpenAIProvider)(nil)
)
