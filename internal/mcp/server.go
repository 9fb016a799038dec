package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/gateway"
	"github.com/ziadkadry99/cf-pulse/internal/scope"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Dispatcher runs a catalog command on a scope.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, s scope.Scope, args catalog.Args) gateway.Result
}

// Server wraps an MCP server that exposes the command catalog as tools.
// Every tool call runs on the scope fixed at construction.
type Server struct {
	dispatcher Dispatcher
	catalog    *catalog.Catalog
	scope      scope.Scope
	logger     *zap.Logger
	mcp        *server.MCPServer
	tools      []server.ServerTool
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(d Dispatcher, cat *catalog.Catalog, s scope.Scope, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		dispatcher: d,
		catalog:    cat,
		scope:      s,
		logger:     logger,
	}

	srv.mcp = server.NewMCPServer(
		"cfpulse",
		Version,
		server.WithToolCapabilities(false),
	)

	srv.registerTools()

	return srv
}

// registerTools adds one tool per catalog command.
func (s *Server) registerTools() {
	for _, spec := range s.catalog.Commands() {
		s.tools = append(s.tools, server.ServerTool{
			Tool:    toolFor(spec),
			Handler: s.handlerFor(spec.Name),
		})
	}
	s.mcp.AddTools(s.tools...)
}

// Scope returns the scope tool calls run on.
func (s *Server) Scope() scope.Scope { return s.scope }

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
