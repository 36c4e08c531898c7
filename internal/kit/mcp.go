package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDecodeResult is a decoded tool request plus an optional context
// enrichment applied before the endpoint runs.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// RegisterMCPTool exposes endpoint as an MCP tool. Decode and endpoint
// failures are reported as tool errors, not protocol errors; the response
// is returned as JSON text content.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode func(*mcp.CallToolRequest) (*MCPDecodeResult, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolErr := func(err error) (*mcp.CallToolResult, error) {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		decoded, err := decode(req)
		if err != nil {
			return toolErr(fmt.Errorf("invalid arguments: %w", err))
		}
		ctx = WithTransport(ctx, "mcp")
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return toolErr(err)
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return toolErr(fmt.Errorf("marshal: %w", err))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
