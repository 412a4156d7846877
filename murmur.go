// Package murmur provides a library for transcribing, indexing, and querying
// spoken-word recordings.
//
// Murmur turns audio recordings into searchable transcripts: uploads are
// transcribed, chunked at sentence boundaries, embedded, and written to a
// vector index. Questions are answered by retrieving the most relevant
// chunks and asking a text model to answer from that context alone.
//
// Basic usage:
//
//	client, err := murmur.New(
//	    murmur.WithSQLite(".murmur/data.db"),
//	    murmur.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Ingest a recording
//	result, err := client.Ingest.FromAudio(ctx, "Weekly standup", "2026-08-31", "standup.mp3", audio)
//
//	// Semantic search
//	matches, err := client.Search.Query(ctx, "budget discussion")
//
//	// Grounded question answering
//	answer, err := client.Answer.Ask(ctx, "What did we decide about the budget?")
package murmur

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/murmurlabs/murmur/application/service"
	"github.com/murmurlabs/murmur/domain/search"
	"github.com/murmurlabs/murmur/infrastructure/persistence"
	"github.com/murmurlabs/murmur/infrastructure/provider"
	"github.com/murmurlabs/murmur/internal/config"
	"github.com/murmurlabs/murmur/internal/database"
)

// ErrNoDatabase is returned by New when no database is configured.
var ErrNoDatabase = errors.New("murmur: no database configured, use WithSQLite, WithPostgres, or WithDatabaseURL")

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = service.ErrClientClosed

// Client is the main entry point for the murmur library.
//
// Access resources via struct fields:
//
//	client.Ingest.FromAudio(ctx, name, date, filename, audio)
//	client.Transcripts.List(ctx)
//	client.Search.Query(ctx, "query")
//	client.Answer.Ask(ctx, "question")
type Client struct {
	// Public resource fields (direct service access)
	Transcripts *service.Transcripts
	Ingest      *service.Ingest
	Search      *service.Search
	Answer      *service.Answer

	db          database.Database
	store       persistence.TranscriptStore
	vectors     search.VectorStore
	indexer     *service.Indexer
	hugotEmbeds *provider.HugotEmbedding
	closers     []io.Closer

	logger  *slog.Logger
	dataDir string
	closed  atomic.Bool
	mu      sync.Mutex
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dbURL == "" {
		return nil, ErrNoDatabase
	}

	logger := cfg.logger
	if logger == nil {
		logger = config.DefaultLogger()
	}

	dataDir, err := config.PrepareDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}

	// Build the provider set. A single OpenAI-compatible configuration can
	// serve all three capabilities; explicit providers win over it.
	embedder, generator, transcriberSource, hugotEmbeds, closers, err := buildProviders(cfg, dataDir, logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, cfg.dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	store := persistence.NewTranscriptStore(db)

	vectors, err := buildVectorStore(ctx, db, embedder, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("vector store: %w", err), errClose)
	}

	client := &Client{
		db:          db,
		store:       store,
		vectors:     vectors,
		hugotEmbeds: hugotEmbeds,
		closers:     closers,
		logger:      logger,
		dataDir:     dataDir,
	}

	client.indexer = service.NewIndexer(store, vectors, cfg.chunkParams, logger)

	// Initialize service fields directly
	client.Transcripts = service.NewTranscripts(store, client.indexer, &client.closed, logger)
	client.Ingest = service.NewIngest(store, client.indexer, transcriberSource, &client.closed, logger)
	client.Search = service.NewSearch(vectors, store, cfg.topK, &client.closed, logger)
	client.Answer = service.NewAnswer(client.Search, generator, cfg.contextBudget, &client.closed, logger)

	return client, nil
}

// Close releases all resources held by the client.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hugotEmbeds != nil {
		if err := c.hugotEmbeds.Close(); err != nil {
			c.logger.Error("failed to close local embedding provider", slog.Any("error", err))
		}
	}

	// Close registered resources (e.g. caching transports)
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("murmur client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// DataDir returns the resolved data directory.
func (c *Client) DataDir() string {
	return c.dataDir
}

// buildProviders resolves the embedding, text generation, and transcription
// providers from the client configuration. When no embedder is configured it
// falls back to the built-in local model.
func buildProviders(cfg *clientConfig, dataDir string, logger *slog.Logger) (
	embedder provider.Embedder,
	generator provider.TextGenerator,
	transcriberSource service.TranscriberSource,
	hugotEmbeds *provider.HugotEmbedding,
	closers []io.Closer,
	err error,
) {
	closers = cfg.closers

	var openaiProvider *provider.OpenAIProvider
	if cfg.openaiConfig != nil {
		oc := *cfg.openaiConfig
		if oc.HTTPClient == nil && cfg.httpCacheDir != "" {
			transport := provider.NewCachingTransport(cfg.httpCacheDir, nil)
			oc.HTTPClient = &http.Client{Transport: transport}
		}
		openaiProvider = provider.NewOpenAIProvider(oc)
	}

	embedder = cfg.embedder
	if embedder == nil && openaiProvider != nil && !cfg.localEmbeddings {
		embedder = openaiProvider
	}
	if embedder == nil {
		modelDir := cfg.modelDir
		if modelDir == "" {
			modelDir = filepath.Join(dataDir, "models")
		}
		hugotEmbeds = provider.NewHugotEmbedding(modelDir)
		if !hugotEmbeds.Available() {
			return nil, nil, nil, nil, nil, fmt.Errorf("no embedding model found in %s, configure an embedding provider or download a local model", modelDir)
		}
		embedder = hugotEmbeds
		logger.Info("built-in embedding provider enabled", slog.String("model_dir", modelDir))
	}

	generator = cfg.generator
	if generator == nil && openaiProvider != nil {
		generator = openaiProvider
	}

	transcriberSource = cfg.transcriberSource
	if transcriberSource == nil && openaiProvider != nil {
		p := openaiProvider
		transcriberSource = func(context.Context) (provider.Transcriber, error) {
			return p, nil
		}
	}

	return embedder, generator, transcriberSource, hugotEmbeds, closers, nil
}

// buildVectorStore selects the vector index backend for the database dialect.
// Postgres stores require the embedding dimension up front for the VECTOR(N)
// column declaration, so the provider is probed once; SQLite stores JSON and
// needs no dimension.
func buildVectorStore(ctx context.Context, db database.Database, embedder provider.Embedder, logger *slog.Logger) (search.VectorStore, error) {
	if db.IsPostgres() {
		resp, err := embedder.Embed(ctx, provider.NewEmbeddingRequest([]string{"dimension probe"}))
		if err != nil {
			return nil, fmt.Errorf("probe embedding dimension: %w", err)
		}
		embeddings := resp.Embeddings()
		if len(embeddings) == 0 || len(embeddings[0]) == 0 {
			return nil, fmt.Errorf("failed to obtain embedding dimension from provider")
		}
		return persistence.NewPgvectorVectorStore(ctx, db, embedder, len(embeddings[0]), logger)
	}
	return persistence.NewSQLiteVectorStore(db, embedder, logger)
}
