package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/murmurlabs/murmur"
	"github.com/murmurlabs/murmur/internal/log"
	"github.com/murmurlabs/murmur/internal/mcp"
	"github.com/spf13/cobra"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This allows AI assistants to search transcripts and ask questions over the
transcript corpus. Configuration is loaded from environment variables and
.env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Stdout carries the MCP protocol, so logs go to stderr.
	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	slogger := logger.Slog()

	slogger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

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

	mcpServer := mcp.NewServer(client.Search, client.Answer, version, slogger)

	return mcpServer.ServeStdio()
}
