package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/metrics"
)

// Server is the local API server for the memory deck.
type Server struct {
	config  Config
	deck    *deck.Deck
	metrics *metrics.Collector
	mcp     http.Handler
	logger  *slog.Logger
	app     *fiber.App
}

// Option configures optional parts of the Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMCP mounts an MCP handler on /mcp.
func WithMCP(handler http.Handler) Option {
	return func(s *Server) {
		s.mcp = handler
	}
}

// NewServer creates a new API server over d.
func NewServer(config Config, d *deck.Deck, logger *slog.Logger, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, errors.New("deck is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = defaultRecentLimit
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		deck:   d,
		logger: logger,
		app:    app,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Middleware must be registered ahead of the routes it wraps.
	if s.metrics != nil {
		app.Use(s.recordRequest)
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/memories", s.handleListMemories)
	app.Post("/v1/memories", s.handleAddMemory)
	app.Get("/v1/memories/:id", s.handleGetMemory)
	app.Delete("/v1/memories/:id", s.handleDeleteMemory)
	app.Get("/v1/facets", s.handleFacets)
	app.Get("/v1/stats", s.handleStats)
	app.Post("/v1/refresh", s.handleRefresh)

	if s.mcp != nil {
		app.All("/mcp", adaptor.HTTPHandler(s.mcp))
	}

	return s, nil
}

// recordRequest times every request for the metrics collector.
func (s *Server) recordRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	s.metrics.RecordHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
