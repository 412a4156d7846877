package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/murmurlabs/murmur"
	"github.com/murmurlabs/murmur/infrastructure/api"
	"github.com/murmurlabs/murmur/internal/config"
	"github.com/murmurlabs/murmur/internal/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables (also accepted with a MURMUR_ prefix):
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.murmur)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/murmur.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  OPENAI_API_KEY               Shared API key for endpoints without their own

  CHAT_ENDPOINT_*              Text generation service configuration
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier (default: gpt-4o)
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout in seconds (default: 60)
    MAX_RETRIES                Retry attempts (default: 5)

  EMBEDDING_ENDPOINT_*         Embedding service configuration
    (same fields; default model: text-embedding-3-small)

  TRANSCRIPTION_ENDPOINT_*     Transcription service configuration
    (same fields; default model: whisper-1)

  EMBEDDING_BACKEND            Embedding backend: openai, local (default: openai)
  MODEL_CACHE_DIR              Local embedding model directory (default: {data_dir}/models)

  CHUNK_SIZE                   Chunk word budget (default: 500)
  OVERLAP_SENTENCES            Chunk overlap in sentences (default: 3)
  TOP_K                        Default search result count (default: 5)
  CONTEXT_BUDGET               Answer grounding budget in characters (default: 8000)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Apply command line overrides (flags take precedence over env vars)
	cfg = applyServeOverrides(cfg, host, port)

	addr := cfg.Addr()

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting murmur", attrs...)

	client, err := murmur.New(
		murmur.WithConfig(cfg),
		murmur.WithLogger(slogger),
	)
	if err != nil {
		return fmt.Errorf("create murmur client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close murmur client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, version)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	slogger.Info("starting server", slog.String("addr", addr))
	if err := apiServer.ListenAndServe(addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
