// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/murmurlabs/murmur/application/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Searcher provides semantic transcript search for MCP tools.
type Searcher interface {
	Query(ctx context.Context, query string, opts ...service.SearchOption) ([]service.Result, error)
}

// Asker provides grounded question answering for MCP tools.
type Asker interface {
	Ask(ctx context.Context, question string) (service.AnswerResult, error)
}

// Server wraps the MCP server with murmur-specific tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	asker     Asker
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(searcher Searcher, asker Asker, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		asker:    asker,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"murmur",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// registerTools registers all murmur tools with the MCP server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("search_transcripts",
		mcp.WithDescription("Semantic search over transcribed recordings, returns the most relevant transcript chunks"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default: 5)"),
		),
	)

	mcpServer.AddTool(searchTool, s.handleSearch)

	askTool := mcp.NewTool("ask_transcripts",
		mcp.WithDescription("Answer a question using the transcript corpus as grounding context"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)

	mcpServer.AddTool(askTool, s.handleAsk)
}

// handleSearch handles the search_transcripts tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	var opts []service.SearchOption
	if topK := request.GetInt("top_k", 0); topK > 0 {
		opts = append(opts, service.WithTopK(topK))
	}

	results, err := s.searcher.Query(ctx, query, opts...)
	if err != nil {
		s.logger.Error("search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	type searchResult struct {
		TranscriptID int64   `json:"transcript_id"`
		ChunkIndex   int     `json:"chunk_index"`
		ChunkText    string  `json:"chunk_text"`
		Name         string  `json:"name"`
		Date         string  `json:"date"`
		Score        float64 `json:"score"`
	}

	out := make([]searchResult, len(results))
	for i, r := range results {
		m := r.Match()
		out[i] = searchResult{
			TranscriptID: m.TranscriptID(),
			ChunkIndex:   m.ChunkIndex(),
			ChunkText:    m.Text(),
			Name:         m.Name(),
			Date:         m.Date(),
			Score:        m.Score(),
		}
		if t, ok := r.Transcript(); ok {
			out[i].Name = t.Name()
			out[i].Date = t.Date()
		}
	}

	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleAsk handles the ask_transcripts tool invocation.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question is required"), nil
	}

	result, err := s.asker.Ask(ctx, question)
	if err != nil {
		s.logger.Error("ask failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	type sourceResult struct {
		TranscriptID int64   `json:"transcript_id"`
		Name         string  `json:"name"`
		Date         string  `json:"date"`
		Score        float64 `json:"score"`
	}

	type askResult struct {
		Answer  string         `json:"answer"`
		Sources []sourceResult `json:"sources"`
	}

	sources := result.Sources()
	out := askResult{
		Answer:  result.Answer(),
		Sources: make([]sourceResult, len(sources)),
	}
	for i, src := range sources {
		out.Sources[i] = sourceResult{
			TranscriptID: src.TranscriptID(),
			Name:         src.Name(),
			Date:         src.Date(),
			Score:        src.Score(),
		}
	}

	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
