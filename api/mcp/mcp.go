// Package mcp provides an MCP (Model Context Protocol) server over the
// memory deck, so agents can list, add and delete memories.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/utils"
)

type Config struct {
	// Deck is the live view the tools read from and write through
	Deck *deck.Deck

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "memdeck",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Deck == nil {
			return nil, errors.New("deck is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listToolName,
			Description: listDescription,
		}, s.handleListMemories)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        addToolName,
			Description: addDescription,
		}, s.handleAddMemory)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        deleteToolName,
			Description: deleteDescription,
		}, s.handleDeleteMemory)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
