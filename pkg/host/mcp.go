package host

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/edgeopslabs/appkit/pkg/policy"
)

// QualifiedName is the MCP tool name of tool on instance. Characters outside
// [A-Za-z0-9_-] become underscores.
func QualifiedName(instance, tool string) string {
	return sanitize(instance) + "__" + sanitize(tool)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// RegisterMCP exposes every tool not denied by policy on s. It returns the
// registered tools; instances that fail to list are logged and skipped.
func (h *Host) RegisterMCP(ctx context.Context, s *server.MCPServer) []ToolInfo {
	tools, _ := h.Tools(ctx)
	var registered []ToolInfo
	for _, info := range tools {
		if info.Decision == policy.Deny {
			h.logger.Warn("tool blocked by policy", "instance", info.Instance, "tool", info.Tool.Name)
			continue
		}
		tool, err := mcpTool(info)
		if err != nil {
			h.logger.Warn("skipping tool with invalid schema", "instance", info.Instance, "tool", info.Tool.Name, "error", err)
			continue
		}
		s.AddTool(tool, h.handler(info.Instance, info.Tool.Name))
		registered = append(registered, info)
		h.logger.Info("tool registered", "instance", info.Instance, "tool", info.Tool.Name, "name", tool.Name)
	}
	return registered
}

func mcpTool(info ToolInfo) (mcp.Tool, error) {
	input := info.Tool.InputSchema
	if input == nil {
		input = map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return mcp.Tool{}, err
	}
	description := info.Tool.Description
	if description == "" {
		description = info.Tool.Title
	}
	tool := mcp.NewToolWithRawSchema(QualifiedName(info.Instance, info.Tool.Name), description, raw)
	tool.Annotations.Title = info.Tool.Title
	readOnly := info.Tool.ReadOnly
	tool.Annotations.ReadOnlyHint = &readOnly
	return tool, nil
}

func (h *Host) handler(instance, tool string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			args = make(map[string]any)
		}
		result, err := h.Call(ctx, instance, tool, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if text, ok := result.(string); ok {
			return mcp.NewToolResultText(text), nil
		}
		data, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError("encode result: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
