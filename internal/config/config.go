// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8080
	DefaultLogLevel           = "INFO"
	DefaultChunkSize          = 500
	DefaultOverlapSentences   = 3
	DefaultTopK               = 5
	DefaultContextBudget      = 8000
	DefaultChatModel          = "gpt-4o"
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultTranscriptionModel = "whisper-1"
	DefaultEndpointTimeout    = 60 * time.Second
	DefaultEndpointMaxRetries = 5
	DefaultEndpointDelay      = 2 * time.Second
	DefaultEndpointBackoff    = 2.0
	DefaultEndpointMaxTokens  = 4000
	DefaultModelCacheSubdir   = "models"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EmbeddingBackend selects how chunk embeddings are computed.
type EmbeddingBackend string

// EmbeddingBackend values.
const (
	// EmbeddingBackendOpenAI computes embeddings via the OpenAI-compatible
	// embedding endpoint.
	EmbeddingBackendOpenAI EmbeddingBackend = "openai"
	// EmbeddingBackendLocal computes embeddings with the bundled ONNX
	// sentence-transformer model, requiring no API key.
	EmbeddingBackendLocal EmbeddingBackend = "local"
)

// Endpoint configures an AI service endpoint.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	maxTokens     int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointDelay,
		backoffFactor: DefaultEndpointBackoff,
		maxTokens:     DefaultEndpointMaxTokens,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MaxTokens returns the maximum token limit.
func (e Endpoint) MaxTokens() int { return e.maxTokens }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMaxTokens sets the maximum token limit.
func WithMaxTokens(n int) EndpointOption {
	return func(e *Endpoint) { e.maxTokens = n }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host                  string
	port                  int
	dataDir               string
	dbURL                 string
	logLevel              string
	logFormat             LogFormat
	chatEndpoint          *Endpoint
	embeddingEndpoint     *Endpoint
	transcriptionEndpoint *Endpoint
	embeddingBackend      EmbeddingBackend
	modelCacheDir         string
	chunkSize             int
	overlapSentences      int
	topK                  int
	contextBudget         int
	httpCacheDir          string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".murmur"
	}
	return filepath.Join(home, ".murmur")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:             DefaultHost,
		port:             DefaultPort,
		dataDir:          dataDir,
		dbURL:            "sqlite:///" + filepath.Join(dataDir, "murmur.db"),
		logLevel:         DefaultLogLevel,
		logFormat:        LogFormatPretty,
		embeddingBackend: EmbeddingBackendOpenAI,
		chunkSize:        DefaultChunkSize,
		overlapSentences: DefaultOverlapSentences,
		topK:             DefaultTopK,
		contextBudget:    DefaultContextBudget,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// ChatEndpoint returns the chat completion endpoint config.
func (c AppConfig) ChatEndpoint() *Endpoint { return c.chatEndpoint }

// EmbeddingEndpoint returns the embedding endpoint config.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// TranscriptionEndpoint returns the audio transcription endpoint config.
func (c AppConfig) TranscriptionEndpoint() *Endpoint { return c.transcriptionEndpoint }

// EmbeddingBackend returns the selected embedding backend.
func (c AppConfig) EmbeddingBackend() EmbeddingBackend { return c.embeddingBackend }

// ModelCacheDir returns the directory local embedding models are cached in.
func (c AppConfig) ModelCacheDir() string {
	if c.modelCacheDir != "" {
		return c.modelCacheDir
	}
	return filepath.Join(c.dataDir, DefaultModelCacheSubdir)
}

// ChunkSize returns the target chunk size in words.
func (c AppConfig) ChunkSize() int { return c.chunkSize }

// OverlapSentences returns the number of sentences carried between chunks.
func (c AppConfig) OverlapSentences() int { return c.overlapSentences }

// TopK returns the default number of search results.
func (c AppConfig) TopK() int { return c.topK }

// ContextBudget returns the character budget for assembled answer context.
func (c AppConfig) ContextBudget() int { return c.contextBudget }

// HTTPCacheDir returns the directory for caching HTTP responses, if set.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || strings.Contains(c.dbURL, "murmur.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "murmur.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithChatEndpoint sets the chat completion endpoint.
func WithChatEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.chatEndpoint = &e }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithTranscriptionEndpoint sets the audio transcription endpoint.
func WithTranscriptionEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.transcriptionEndpoint = &e }
}

// WithEmbeddingBackend sets the embedding backend.
func WithEmbeddingBackend(b EmbeddingBackend) AppConfigOption {
	return func(c *AppConfig) { c.embeddingBackend = b }
}

// WithModelCacheDir sets the local model cache directory.
func WithModelCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.modelCacheDir = dir }
}

// WithChunkSize sets the target chunk size in words.
func WithChunkSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithOverlapSentences sets the sentence overlap between chunks.
func WithOverlapSentences(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n >= 0 {
			c.overlapSentences = n
		}
	}
}

// WithTopK sets the default number of search results.
func WithTopK(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.topK = n
		}
	}
}

// WithContextBudget sets the character budget for assembled answer context.
func WithContextBudget(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.contextBudget = n
		}
	}
}

// WithHTTPCacheDir sets the directory for caching HTTP responses.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
// This copies all fields from the receiver and then applies the options,
// making it safe to use when adding new fields to AppConfig.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are never included.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("chat_model", c.endpointModel(c.chatEndpoint)),
		slog.String("embedding_model", c.endpointModel(c.embeddingEndpoint)),
		slog.String("transcription_model", c.endpointModel(c.transcriptionEndpoint)),
		slog.String("embedding_backend", string(c.embeddingBackend)),
		slog.Int("chunk_size", c.chunkSize),
		slog.Int("top_k", c.topK),
		slog.Int("context_budget", c.contextBudget),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}

func (c AppConfig) endpointModel(e *Endpoint) string {
	if e == nil {
		return "(not configured)"
	}
	return e.Model()
}
