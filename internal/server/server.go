package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/navwatch/internal/app"
	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
)

// Server wraps the HTTP server and the services its handlers read from.
type Server struct {
	valuation interfaces.ValuationService
	feedback  interfaces.FeedbackStore
	stream    http.HandlerFunc
	location  *time.Location
	server    *http.Server
	logger    *common.Logger
}

// NewServer creates the HTTP server with the REST API and the MCP endpoint.
func NewServer(a *app.App) *Server {
	s := newServer(a.Valuation, a.Storage.FeedbackStore(), a.Calendar.Location(), a.Logger)
	s.stream = a.Stream.ServeWS

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// MCP over Streamable HTTP
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(a.MCPServer,
		mcpserver.WithStateLess(true),
	))

	handler := applyMiddleware(mux, a.Logger)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func newServer(valuation interfaces.ValuationService, feedback interfaces.FeedbackStore, loc *time.Location, logger *common.Logger) *Server {
	return &Server{
		valuation: valuation,
		feedback:  feedback,
		location:  loc,
		logger:    logger,
	}
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
