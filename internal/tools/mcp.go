package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tandemlabs/tandem/internal/config"
	"github.com/tandemlabs/tandem/internal/version"
)

// mcpTool adapts a remote MCP tool to [BaseTool].
type mcpTool struct {
	client *client.Client
	server string
	tool   mcp.Tool
}

func (t *mcpTool) Name() string {
	return t.tool.Name
}

func (t *mcpTool) Info() ToolInfo {
	return ToolInfo{
		Name:        t.tool.Name,
		Description: t.tool.Description,
		Parameters:  t.tool.InputSchema.Properties,
		Required:    t.tool.InputSchema.Required,
	}
}

func (t *mcpTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	var args map[string]any
	if call.Input != "" {
		if err := json.Unmarshal([]byte(call.Input), &args); err != nil {
			return NewTextErrorResponse(fmt.Sprintf("error parsing parameters: %s", err)), nil
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.tool.Name
	req.Params.Arguments = args

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return ToolResponse{}, fmt.Errorf("mcp tool %q failed: %w", t.tool.Name, err)
	}

	var content string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			content += tc.Text
		}
	}
	if result.IsError {
		return NewTextErrorResponse(content), nil
	}
	return NewTextResponse(content), nil
}

// MCPManager owns the MCP client connections for the process.
type MCPManager struct {
	clients []*client.Client
}

// ConnectMCP dials every configured MCP server, lists its tools, and
// registers them. A server that fails to connect is logged and skipped; the
// rest of the process keeps the tools it could get.
func ConnectMCP(ctx context.Context, servers []config.MCPServer, registry *Registry) *MCPManager {
	m := &MCPManager{}
	for _, srv := range servers {
		c, err := dial(srv)
		if err != nil {
			slog.Warn("failed to connect to MCP server, skipping", "name", srv.Name, "error", err)
			continue
		}

		initReq := mcp.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initReq.Params.ClientInfo = mcp.Implementation{
			Name:    "tandem",
			Version: version.Version,
		}
		if _, err := c.Initialize(ctx, initReq); err != nil {
			slog.Warn("failed to initialize MCP server, skipping", "name", srv.Name, "error", err)
			_ = c.Close()
			continue
		}

		listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			slog.Warn("failed to list MCP tools, skipping", "name", srv.Name, "error", err)
			_ = c.Close()
			continue
		}

		for _, tool := range listed.Tools {
			registry.Register(&mcpTool{client: c, server: srv.Name, tool: tool})
		}
		m.clients = append(m.clients, c)
		slog.Info("MCP server connected", "name", srv.Name, "tools", len(listed.Tools))
	}
	return m
}

func dial(srv config.MCPServer) (*client.Client, error) {
	switch srv.Transport {
	case "", "stdio":
		return client.NewStdioMCPClient(srv.Command, nil, srv.Args...)
	case "http", "sse":
		return client.NewStreamableHttpClient(srv.Endpoint)
	default:
		return nil, fmt.Errorf("unknown MCP transport type: %s", srv.Transport)
	}
}

// Close shuts down all MCP client connections.
func (m *MCPManager) Close() {
	for _, c := range m.clients {
		_ = c.Close()
	}
}
