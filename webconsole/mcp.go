package webconsole

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domconsole/internal/idgen"
	"github.com/hazyhaar/domconsole/internal/kit"
)

// MCPRequestPrefix starts the request ID given to every tool call.
const MCPRequestPrefix = "mcp_"

var mcpRequestIDs = idgen.Prefixed(MCPRequestPrefix, idgen.UUIDv7())

// RegisterMCP registers the console tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	valuesProp := map[string]any{
		"type":        "array",
		"description": "Values to log, left to right. Any JSON value.",
		"items":       map[string]any{},
	}

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "console_log",
		Description: "Append one record to the console. Values are rendered left to right; set html to log the top-level elements of an HTML fragment instead.",
		InputSchema: inputSchema(map[string]any{
			"values": valuesProp,
			"html":   map[string]any{"type": "string", "description": "HTML fragment whose top-level elements are logged"},
			"method": map[string]any{"type": "string", "enum": []string{"log", "info", "debug", "break", MethodWarn, MethodGroup, MethodGroupEnd}},
		}, nil),
	}, s.logEP, decodeJSON[LogRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "console_break",
		Description: "Append a blank separator record to the console.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, s.breakEP, decodeNone)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "console_inspect",
		Description: "Return the Parsed Node of each value without logging it.",
		InputSchema: inputSchema(map[string]any{"values": valuesProp}, []string{"values"}),
	}, s.inspectEP, decodeJSON[InspectRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "console_records",
		Description: "List journaled records, oldest first.",
		InputSchema: inputSchema(map[string]any{
			"method": map[string]any{"type": "string", "enum": []string{"log", "info", "debug", "break"}},
			"limit":  map[string]any{"type": "integer", "description": "Max records (default 100)"},
		}, nil),
	}, s.recordsEP, decodeJSON[RecordsRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "console_record",
		Description: "Return one journaled record by ID.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Record ID (rec_...)"},
		}, []string{"id"}),
	}, s.recordEP, decodeJSON[RecordRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "console_clear",
		Description: "Remove every record from the console and the journal.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, s.clearEP, decodeNone)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func decodeJSON[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r, EnrichCtx: withRequestID}, nil
}

func decodeNone(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{EnrichCtx: withRequestID}, nil
}

func withRequestID(ctx context.Context) context.Context {
	return kit.WithRequestID(ctx, mcpRequestIDs())
}
