package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/gateway"
)

// handlerFor dispatches command on the server's fixed scope. Org and space in
// the tool arguments are never consulted.
func (s *Server) handlerFor(command string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = gateway.WithOrigin(ctx, gateway.Origin{Source: gateway.SourceMCP})
		args := catalog.Args(request.GetArguments())

		res := s.dispatcher.Dispatch(ctx, command, s.scope, args)
		body, err := json.Marshal(res)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		if !res.OK() {
			s.logger.Debug("mcp tool failed", zap.String("command", command), zap.String("kind", string(res.Failure.Kind)))
			return mcp.NewToolResultError(string(body)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
