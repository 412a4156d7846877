package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., CHAT_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.murmur
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/murmur.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// OpenAIAPIKey is the shared key applied to any endpoint that does not
	// set its own. Env: OPENAI_API_KEY
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// ChatEndpoint configures the chat completion service used for answers.
	ChatEndpoint EndpointEnv `envconfig:"CHAT_ENDPOINT"`

	// EmbeddingEndpoint configures the embedding service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// TranscriptionEndpoint configures the audio transcription service.
	TranscriptionEndpoint EndpointEnv `envconfig:"TRANSCRIPTION_ENDPOINT"`

	// EmbeddingBackend selects how embeddings are computed (openai or local).
	// Env: EMBEDDING_BACKEND (default: openai)
	EmbeddingBackend string `envconfig:"EMBEDDING_BACKEND" default:"openai"`

	// ModelCacheDir is the directory local embedding models are cached in.
	// Env: MODEL_CACHE_DIR
	// Default: {data_dir}/models
	ModelCacheDir string `envconfig:"MODEL_CACHE_DIR"`

	// ChunkSize is the target transcript chunk size in words.
	// Env: CHUNK_SIZE (default: 500)
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"500"`

	// OverlapSentences is the number of sentences carried between chunks.
	// Env: OVERLAP_SENTENCES (default: 3)
	OverlapSentences int `envconfig:"OVERLAP_SENTENCES" default:"3"`

	// TopK is the default number of search results.
	// Env: TOP_K (default: 5)
	TopK int `envconfig:"TOP_K" default:"5"`

	// ContextBudget is the character budget for assembled answer context.
	// Env: CONTEXT_BUDGET (default: 8000)
	ContextBudget int `envconfig:"CONTEXT_BUDGET" default:"8000"`

	// HTTPCacheDir is the directory for caching HTTP responses to disk.
	// When set, request/response pairs are cached to avoid repeated API calls.
	// Env: HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`
}

// EndpointEnv holds environment configuration for an AI endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g., text-embedding-3-small).
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: *_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: *_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: *_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// MaxTokens is the maximum token limit.
	// Env: *_MAX_TOKENS (default: 4000)
	MaxTokens int `envconfig:"MAX_TOKENS" default:"4000"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "MURMUR" would require MURMUR_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize fills in endpoint defaults that depend on other settings.
// Endpoints without a model fall back to the standard OpenAI models, and
// OPENAI_API_KEY is applied to any endpoint that does not set its own key.
func (e EnvConfig) Normalize() EnvConfig {
	if e.ChatEndpoint.Model == "" {
		e.ChatEndpoint.Model = DefaultChatModel
	}
	if e.EmbeddingEndpoint.Model == "" {
		e.EmbeddingEndpoint.Model = DefaultEmbeddingModel
	}
	if e.TranscriptionEndpoint.Model == "" {
		e.TranscriptionEndpoint.Model = DefaultTranscriptionModel
	}
	if e.OpenAIAPIKey != "" {
		if e.ChatEndpoint.APIKey == "" {
			e.ChatEndpoint.APIKey = e.OpenAIAPIKey
		}
		if e.EmbeddingEndpoint.APIKey == "" {
			e.EmbeddingEndpoint.APIKey = e.OpenAIAPIKey
		}
		if e.TranscriptionEndpoint.APIKey == "" {
			e.TranscriptionEndpoint.APIKey = e.OpenAIAPIKey
		}
	}
	return e
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	// Apply overrides from environment
	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}

	if e.ChatEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithChatEndpoint(e.ChatEndpoint.ToEndpoint()))
	}
	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}
	if e.TranscriptionEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithTranscriptionEndpoint(e.TranscriptionEndpoint.ToEndpoint()))
	}

	if e.EmbeddingBackend != "" {
		cfg = applyOption(cfg, WithEmbeddingBackend(parseEmbeddingBackend(e.EmbeddingBackend)))
	}
	if e.ModelCacheDir != "" {
		cfg = applyOption(cfg, WithModelCacheDir(e.ModelCacheDir))
	}
	if e.ChunkSize > 0 {
		cfg = applyOption(cfg, WithChunkSize(e.ChunkSize))
	}
	if e.OverlapSentences >= 0 {
		cfg = applyOption(cfg, WithOverlapSentences(e.OverlapSentences))
	}
	if e.TopK > 0 {
		cfg = applyOption(cfg, WithTopK(e.TopK))
	}
	if e.ContextBudget > 0 {
		cfg = applyOption(cfg, WithContextBudget(e.ContextBudget))
	}
	if e.HTTPCacheDir != "" {
		cfg = applyOption(cfg, WithHTTPCacheDir(e.HTTPCacheDir))
	}

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// IsConfigured returns true if the endpoint has a model configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second))),
		WithBackoffFactor(e.BackoffFactor),
		WithMaxTokens(e.MaxTokens),
	}

	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}

	return NewEndpointWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// parseEmbeddingBackend parses an embedding backend string.
func parseEmbeddingBackend(s string) EmbeddingBackend {
	switch strings.ToLower(s) {
	case "local":
		return EmbeddingBackendLocal
	default:
		return EmbeddingBackendOpenAI
	}
}
