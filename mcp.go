package adwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the engine's tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerRunTool(srv)
	e.registerSelectorsTool(srv)
	e.registerCheckpointTool(srv)
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

// registerTool wires a typed handler as an MCP tool: decode the
// arguments, run, marshal the response as one text content block. Tool
// failures surface as tool errors, not protocol errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool, handler func(context.Context, json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := handler(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func (e *Engine) registerRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "adwatch_run",
		Description: "Run an extraction against an ad listing URL: scroll, " +
			"extract, deduplicate and checkpoint. Returns the full result " +
			"with records, media URLs and metrics.",
		InputSchema: inputSchema(map[string]any{
			"url":         map[string]any{"type": "string", "description": "Ad listing URL to extract"},
			"max_scrolls": map[string]any{"type": "integer", "description": "Override the configured scroll cap"},
			"resume":      map[string]any{"type": "boolean", "description": "Seed the run from the persisted checkpoint"},
		}, []string{"url"}),
	}

	registerTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req RunRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		res, err := e.Run(ctx, req)
		if res != nil {
			// A failed run still carries partial results worth returning.
			return res, nil
		}
		return nil, err
	})
}

func (e *Engine) registerSelectorsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "adwatch_selectors",
		Description: "List the active selector fallback lists per logical target.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	registerTool(srv, tool, func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]any{"targets": e.selectors.Sets()}, nil
	})
}

func (e *Engine) registerCheckpointTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "adwatch_checkpoint",
		Description: "Read the persisted extraction checkpoint, if any.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	registerTool(srv, tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		cp, err := e.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if cp == nil {
			return map[string]any{"present": false}, nil
		}
		return map[string]any{
			"present":      true,
			"records":      len(cp.UniqueRecords),
			"media_urls":   len(cp.MediaURLs),
			"scroll_count": cp.ScrollCount,
			"saved_at":     cp.SavedAt,
		}, nil
	})
}
