package cmd

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/tandemlabs/tandem/internal/tools"
	"github.com/tandemlabs/tandem/internal/version"
)

// mcpTimeCmd serves the built-in tools over stdio MCP, so the backend can
// be pointed at itself as an external tool server for testing.
var mcpTimeCmd = &cobra.Command{
	Use:    "mcptime",
	Short:  "Serve the built-in tools as a stdio MCP server",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mcpserver.NewMCPServer("tandem-time", version.Version,
			mcpserver.WithToolCapabilities(false),
		)
		for _, t := range []tools.BaseTool{
			tools.NewCurrentTimeTool(),
			tools.NewPaintingTool(),
		} {
			srv.AddTool(
				mcp.NewTool(t.Name(), mcp.WithDescription(t.Info().Description)),
				mcpHandler(t),
			)
		}
		return mcpserver.ServeStdio(srv)
	},
}

func mcpHandler(t tools.BaseTool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := t.Run(ctx, tools.ToolCall{Name: t.Name(), Input: "{}"})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.IsError {
			return mcp.NewToolResultError(resp.Content), nil
		}
		return mcp.NewToolResultText(resp.Content), nil
	}
}
