// Package mcpapp is the base for apps whose tools live on a remote MCP server.
// Tools are discovered from the server at call time rather than declared.
package mcpapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/auth"
	"github.com/edgeopslabs/appkit/pkg/common"
)

// Client is the handle produced by MCP apps. The connection is opened on
// first use and reused until Close.
type Client struct {
	url     string
	headers map[string]string

	mu          sync.Mutex
	mcp         *client.Client
	initialized bool
}

// Headers resolves the transport headers for an MCP server connection.
func Headers(authType string, params any) map[string]string {
	return auth.Resolve(authType, params)
}

// NewClient binds url and headers to a streamable HTTP MCP client. No
// connection is made until the first request.
func NewClient(url string, headers map[string]string, hc *http.Client) (*Client, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, fmt.Errorf("mcp server url is empty")
	}
	opts := []transport.StreamableHTTPCOption{transport.WithHTTPHeaders(headers)}
	if hc != nil {
		opts = append(opts, transport.WithHTTPBasicClient(hc))
	}
	c, err := client.NewStreamableHttpClient(trimmed, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}
	bound := make(map[string]string, len(headers))
	for key, value := range headers {
		bound[key] = value
	}
	return &Client{url: trimmed, headers: bound, mcp: c}, nil
}

func (c *Client) URL() string {
	return c.url
}

// Headers returns a copy of the headers sent with every request.
func (c *Client) Headers() map[string]string {
	out := make(map[string]string, len(c.headers))
	for key, value := range c.headers {
		out[key] = value
	}
	return out
}

func (c *Client) connect(ctx context.Context) (*client.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.mcp, nil
	}
	if err := c.mcp.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp transport: %w", err)
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: common.AppName, Version: common.Version}
	if _, err := c.mcp.Initialize(ctx, req); err != nil {
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}
	c.initialized = true
	return c.mcp, nil
}

// ListTools returns the server's tools keyed by name.
func (c *Client) ListTools(ctx context.Context) (map[string]app.ToolSpec, error) {
	mc, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	res, err := mc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	out := make(map[string]app.ToolSpec, len(res.Tools))
	for _, tool := range res.Tools {
		spec, err := toolSpec(tool)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = spec
	}
	return out, nil
}

// CallTool invokes a remote tool. A result flagged as an error is returned as
// an error carrying the result text.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	mc, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := mc.CallTool(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("%s", resultText(res))
	}
	return toMap(res)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = false
	return c.mcp.Close()
}

// New specialises base into an MCP app: the client targets config.url with
// the resolved auth headers, tools are enumerated from the server.
func New(base *app.App) *app.App {
	a := *base
	a.GetClient = getClient
	a.GetTools = getTools
	a.CallTool = callTool
	return &a
}

func getClient(p app.ClientParams) (app.Client, error) {
	return NewClient(cast.ToString(p.Config["url"]), Headers(p.AuthType, p.AuthParams), p.HTTPClient)
}

func getTools(ctx context.Context, p app.ToolsParams) (map[string]app.ToolSpec, error) {
	c, err := asClient(p.Client)
	if err != nil {
		return nil, err
	}
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, app.NewUpstreamError("", "Failed to list tools: ", err)
	}
	return tools, nil
}

func callTool(ctx context.Context, p app.CallParams) (any, error) {
	c, err := asClient(p.Client)
	if err != nil {
		return nil, err
	}
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, app.NewUpstreamError(p.ToolName, "Failed to list tools: ", err)
	}
	if _, ok := tools[p.ToolName]; !ok {
		return nil, &app.ToolNotFoundError{Tool: p.ToolName}
	}
	args := p.Args
	if args == nil {
		args = map[string]any{}
	}
	out, err := c.CallTool(ctx, p.ToolName, args)
	if err != nil {
		return nil, app.NewUpstreamError(p.ToolName, p.ToolName+" failed: ", err)
	}
	return out, nil
}

func asClient(v app.Client) (*Client, error) {
	c, ok := v.(*Client)
	if !ok || c == nil {
		return nil, fmt.Errorf("unexpected client %T", v)
	}
	return c, nil
}

func toolSpec(tool mcp.Tool) (app.ToolSpec, error) {
	doc, err := toMap(tool)
	if err != nil {
		return app.ToolSpec{}, err
	}
	spec := app.ToolSpec{
		Name:        tool.Name,
		Description: tool.Description,
		Title:       cast.ToString(doc["title"]),
	}
	if input, ok := doc["inputSchema"].(map[string]any); ok {
		spec.InputSchema = input
	} else {
		spec.InputSchema = map[string]any{"type": "object"}
	}
	if output, ok := doc["outputSchema"].(map[string]any); ok {
		spec.OutputSchema = output
	}
	if annotations, ok := doc["annotations"].(map[string]any); ok {
		spec.ReadOnly = cast.ToBool(annotations["readOnlyHint"])
		if spec.Title == "" {
			spec.Title = cast.ToString(annotations["title"])
		}
	}
	return spec, nil
}

func resultText(res *mcp.CallToolResult) string {
	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		switch text := content.(type) {
		case mcp.TextContent:
			parts = append(parts, text.Text)
		case *mcp.TextContent:
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "tool returned an error"
	}
	return strings.Join(parts, "\n")
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode mcp payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode mcp payload: %w", err)
	}
	return out, nil
}
