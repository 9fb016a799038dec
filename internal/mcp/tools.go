package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/cf-pulse/internal/catalog"
)

// toolFor converts a catalog command into an MCP tool definition.
func toolFor(spec catalog.CommandSpec) mcp.Tool {
	return mcp.NewToolWithRawSchema(spec.Name, spec.Description, spec.RawSchema())
}
