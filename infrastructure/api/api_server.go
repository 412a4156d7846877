// Package api provides the HTTP server and route wiring for murmur.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/murmurlabs/murmur"
	apimiddleware "github.com/murmurlabs/murmur/infrastructure/api/middleware"
	v1 "github.com/murmurlabs/murmur/infrastructure/api/v1"
	mcpinternal "github.com/murmurlabs/murmur/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// APIServer provides an HTTP API backed by a murmur Client.
type APIServer struct {
	client       *murmur.Client
	version      string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given murmur Client.
func NewAPIServer(client *murmur.Client, version string) *APIServer {
	if version == "" {
		version = "dev"
	}
	return &APIServer{
		client:  client,
		version: version,
		logger:  client.Logger(),
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all v1 API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

// mountRoutes wires up all routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	// Allow-all CORS so browser frontends can talk to the API directly.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	router.Use(apimiddleware.Logging(a.logger))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	transcriptsRouter := v1.NewTranscriptsRouter(c)
	searchRouter := v1.NewSearchRouter(c)
	askRouter := v1.NewAskRouter(c)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/transcripts", transcriptsRouter.Routes())
		r.Mount("/search", searchRouter.Routes())
		r.Mount("/ask", askRouter.Routes())
	})

	// MCP (Model Context Protocol) endpoint — no timeout middleware.
	// MCP uses streaming responses and manages its own session state via
	// response headers, which is incompatible with chi's Timeout middleware
	// that wraps the ResponseWriter.
	mcpSrv := mcpinternal.NewServer(c.Search, c.Answer, a.version, a.logger)
	httpHandler := server.NewStreamableHTTPServer(mcpSrv.MCPServer())
	router.Mount("/mcp", httpHandler)
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	srv := NewServer(addr, a.logger)
	a.server = &srv

	if a.routerCalled && a.router != nil {
		srv.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(srv.Router())
	}

	return srv.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
