package tools

// Tool definitions come from MCP servers named in configuration.  Discovery
// happens once at startup; the resulting definitions are handed to the model
// gateway as chat-completion tools on every adapter request.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	openai "github.com/openai/openai-go"

	"github.com/theapemachine/a2a-bridge/pkg/config"
)

/*
Discover lists the tools of every configured MCP server.  A server that
cannot be reached is skipped with a log line; discovery failure must never
keep the bridge from serving.
*/
func Discover(ctx context.Context, servers []config.MCPServer) []mcp.Tool {
	var discovered []mcp.Tool

	for _, server := range servers {
		tools, err := listTools(ctx, server)

		if err != nil {
			log.Error("failed to discover MCP tools", "server", server.Name, "error", err)
			continue
		}

		log.Info("discovered MCP tools", "server", server.Name, "count", len(tools))
		discovered = append(discovered, tools...)
	}

	return discovered
}

func listTools(ctx context.Context, server config.MCPServer) ([]mcp.Tool, error) {
	httpTransport, err := transport.NewStreamableHTTP(
		server.URL,
		transport.WithHTTPHeaders(server.Headers),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	if err := httpTransport.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start transport: %w", err)
	}

	c := client.NewClient(httpTransport)
	defer c.Close()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "a2a-bridge",
		Version: "1.0.0",
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := c.Initialize(ctx, initRequest); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})

	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	return result.Tools, nil
}

/*
Convert maps MCP tool definitions onto chat-completion tool params.
*/
func Convert(tools []mcp.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))

	for _, t := range tools {
		var paramSchema map[string]any

		if t.RawInputSchema != nil {
			_ = json.Unmarshal(t.RawInputSchema, &paramSchema)
		} else {
			b, _ := json.Marshal(t.InputSchema)
			_ = json.Unmarshal(b, &paramSchema)
		}

		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(paramSchema),
			},
		})
	}

	return out
}
