package murmur

import (
	"context"
	"io"
	"log/slog"

	"github.com/murmurlabs/murmur/application/service"
	"github.com/murmurlabs/murmur/infrastructure/chunking"
	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL             string
	dataDir           string
	modelDir          string
	openaiConfig      *provider.OpenAIConfig
	embedder          provider.Embedder
	generator         provider.TextGenerator
	transcriberSource service.TranscriberSource
	localEmbeddings   bool
	chunkParams       chunking.Params
	topK              int
	contextBudget     int
	httpCacheDir      string
	logger            *slog.Logger
	closers           []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
// This ensures all defaults come from the single source of truth.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:       config.DefaultDataDir(),
		chunkParams:   chunking.DefaultParams(),
		topK:          config.DefaultTopK,
		contextBudget: config.DefaultContextBudget,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite:///" + path
	}
}

// WithPostgres configures PostgreSQL as the database. The vector index uses
// the pgvector extension.
func WithPostgres(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithDatabaseURL configures the database from a URL. Supported schemes are
// sqlite:// and postgresql://.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithOpenAI sets OpenAI as the AI provider for text generation, embeddings,
// and transcription.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.openaiConfig = &provider.OpenAIConfig{APIKey: apiKey}
	}
}

// WithOpenAIConfig sets an OpenAI-compatible provider with custom
// configuration (base URL, models, retry policy).
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		c.openaiConfig = &cfg
	}
}

// WithAnthropic sets Anthropic Claude as the text generation provider.
// Requires a separate embedding provider since Anthropic doesn't provide
// embeddings.
func WithAnthropic(apiKey string) Option {
	return func(c *clientConfig) {
		c.generator = provider.NewAnthropicProvider(apiKey)
	}
}

// WithTextProvider sets a custom text generation provider.
func WithTextProvider(p provider.TextGenerator) Option {
	return func(c *clientConfig) {
		c.generator = p
	}
}

// WithEmbeddingProvider sets a custom embedding provider.
func WithEmbeddingProvider(p provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = p
	}
}

// WithTranscriber sets a custom transcription provider.
func WithTranscriber(p provider.Transcriber) Option {
	return func(c *clientConfig) {
		c.transcriberSource = func(ctx context.Context) (provider.Transcriber, error) {
			return p, nil
		}
	}
}

// WithTranscriberSource sets a lazy transcription provider. The source is
// invoked at most once, on the first ingest that needs it.
func WithTranscriberSource(source service.TranscriberSource) Option {
	return func(c *clientConfig) {
		c.transcriberSource = source
	}
}

// WithLocalEmbeddings selects the built-in local embedding model even when an
// OpenAI provider is configured.
func WithLocalEmbeddings() Option {
	return func(c *clientConfig) {
		c.localEmbeddings = true
	}
}

// WithModelDir sets the directory where local embedding model files are
// stored. Defaults to {dataDir}/models if not specified.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) {
		c.modelDir = dir
	}
}

// WithDataDir sets the data directory for database and model storage.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithChunkParams sets the chunking parameters used when indexing
// transcripts.
func WithChunkParams(params chunking.Params) Option {
	return func(c *clientConfig) {
		c.chunkParams = params
	}
}

// WithTopK sets the default number of search results. Values <= 0 are
// ignored.
func WithTopK(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.topK = n
		}
	}
}

// WithContextBudget sets the character budget for the grounding context
// assembled for question answering. Values <= 0 are ignored.
func WithContextBudget(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.contextBudget = n
		}
	}
}

// WithHTTPCache enables disk caching of AI provider HTTP responses under the
// given directory. Useful for development and deterministic replays.
func WithHTTPCache(dir string) Option {
	return func(c *clientConfig) {
		c.httpCacheDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}

// WithConfig derives client options from an application configuration, as
// loaded by config.LoadConfig. Explicit options applied after this one win.
func WithConfig(app config.AppConfig) Option {
	return func(c *clientConfig) {
		c.dataDir = app.DataDir()
		c.dbURL = app.DBURL()
		c.modelDir = app.ModelCacheDir()
		c.httpCacheDir = app.HTTPCacheDir()
		c.chunkParams = chunking.Params{
			ChunkSize:        app.ChunkSize(),
			OverlapSentences: app.OverlapSentences(),
		}
		c.topK = app.TopK()
		c.contextBudget = app.ContextBudget()

		if app.EmbeddingBackend() == config.EmbeddingBackendLocal {
			c.localEmbeddings = true
		}

		if chat := app.ChatEndpoint(); chat != nil && chat.IsConfigured() {
			c.generator = provider.NewOpenAIProvider(openaiConfigFromEndpoint(*chat))
		}
		if embed := app.EmbeddingEndpoint(); embed != nil && embed.IsConfigured() && !c.localEmbeddings {
			c.embedder = provider.NewOpenAIProvider(openaiConfigFromEndpoint(*embed))
		}
		if stt := app.TranscriptionEndpoint(); stt != nil && stt.IsConfigured() {
			p := provider.NewOpenAIProvider(openaiConfigFromEndpoint(*stt))
			c.transcriberSource = func(ctx context.Context) (provider.Transcriber, error) {
				return p, nil
			}
		}
	}
}

// openaiConfigFromEndpoint maps an endpoint configuration onto the provider
// configuration. The endpoint model serves whichever capability the endpoint
// is used for.
func openaiConfigFromEndpoint(e config.Endpoint) provider.OpenAIConfig {
	return provider.OpenAIConfig{
		APIKey:             e.APIKey(),
		BaseURL:            e.BaseURL(),
		ChatModel:          e.Model(),
		EmbeddingModel:     e.Model(),
		TranscriptionModel: e.Model(),
		Timeout:            e.Timeout(),
		MaxRetries:         e.MaxRetries(),
		InitialDelay:       e.InitialDelay(),
		BackoffFactor:      e.BackoffFactor(),
	}
}
