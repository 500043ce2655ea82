// Package command runs apps whose tools are implemented by an external
// executable. Each call starts the command, writes a JSON request on stdin and
// reads the JSON result from stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/auth"
)

// Flag is appended to the command's arguments so executables can tell an
// appkit invocation apart from an interactive one.
const Flag = "--appkit-app"

type Runtime struct {
	Command  string            `yaml:"command" json:"command"`
	Args     []string          `yaml:"args" json:"args,omitempty"`
	Env      map[string]string `yaml:"env" json:"env,omitempty"`
	MaxBytes int               `yaml:"max_bytes" json:"maxBytes,omitempty"`
}

type ArgSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"` // string, number, integer, boolean
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// ToolDecl is a tool as declared in a manifest. Either Args or InputSchema
// describes the input; InputSchema wins when both are set.
type ToolDecl struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	ReadOnly    bool           `yaml:"read_only"`
	Args        []ArgSpec      `yaml:"args"`
	InputSchema map[string]any `yaml:"inputSchema"`
}

func (d ToolDecl) Spec() app.ToolSpec {
	return app.ToolSpec{
		Name:        d.Name,
		Title:       d.Title,
		Description: d.Description,
		InputSchema: d.inputSchema(),
		ReadOnly:    d.ReadOnly,
	}
}

func (d ToolDecl) inputSchema() map[string]any {
	if d.InputSchema != nil {
		return d.InputSchema
	}
	properties := make(map[string]any, len(d.Args))
	var required []any
	for _, arg := range d.Args {
		properties[arg.Name] = map[string]any{
			"type":        normalizeType(arg.Type),
			"description": arg.Description,
		}
		if arg.Required {
			required = append(required, arg.Name)
		}
	}
	out := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func normalizeType(value string) string {
	switch strings.ToLower(value) {
	case "int", "integer":
		return "integer"
	case "bool", "boolean":
		return "boolean"
	case "number", "float":
		return "number"
	default:
		return "string"
	}
}

// ExitError reports a command that exited with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

func (e *ExitError) ExitCode() int {
	return e.Code
}

// Client is the per-instance handle: the resolved command plus the instance
// config and auth headers forwarded with every request.
type Client struct {
	path     string
	args     []string
	env      []string
	maxBytes int
	config   map[string]any
	headers  map[string]string
}

type request struct {
	Tool    string            `json:"tool"`
	Args    map[string]any    `json:"args"`
	Config  map[string]any    `json:"config"`
	Headers map[string]string `json:"headers"`
}

// New binds a runtime declared in dir to desc. Relative command paths are
// resolved against dir.
func New(desc app.Descriptor, dir string, rt Runtime, decls []ToolDecl) *app.App {
	tools := app.NewToolSet()
	for _, decl := range decls {
		name := decl.Name
		tools.Add(decl.Spec(), func(ctx context.Context, client app.Client, args map[string]any) (any, error) {
			c, ok := client.(*Client)
			if !ok || c == nil {
				return nil, fmt.Errorf("unexpected client %T", client)
			}
			return c.Run(ctx, name, args)
		})
	}

	a := &app.App{Descriptor: desc}
	a.GetClient = func(p app.ClientParams) (app.Client, error) {
		return newClient(dir, rt, p)
	}
	a.GetTools = tools.GetTools
	a.CallTool = tools.CallTool
	return a
}

func newClient(dir string, rt Runtime, p app.ClientParams) (*Client, error) {
	path := strings.TrimSpace(rt.Command)
	if path == "" {
		return nil, fmt.Errorf("command not configured")
	}
	// Bare names not shipped in the bundle are looked up on PATH.
	if !filepath.IsAbs(path) {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil || strings.ContainsRune(path, filepath.Separator) {
			path = candidate
		}
	}

	env := os.Environ()
	for key, value := range rt.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	args := append([]string{}, rt.Args...)
	args = append(args, Flag)

	config := p.Config
	if config == nil {
		config = map[string]any{}
	}
	return &Client{
		path:     path,
		args:     args,
		env:      env,
		maxBytes: rt.MaxBytes,
		config:   config,
		headers:  auth.Resolve(p.AuthType, p.AuthParams),
	}, nil
}

// Run executes one tool call. Output that is not JSON is returned as text.
func (c *Client) Run(ctx context.Context, tool string, args map[string]any) (any, error) {
	data, err := json.Marshal(request{Tool: tool, Args: args, Config: c.config, Headers: c.headers})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Env = c.env
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return nil, fmt.Errorf("run %s: %w", filepath.Base(c.path), err)
	}

	output := bytes.TrimSpace(stdout.Bytes())
	var result any
	if err := json.Unmarshal(output, &result); err == nil {
		return result, nil
	}
	return trimOutput(string(output), c.maxBytes), nil
}

func trimOutput(output string, maxBytes int) string {
	if maxBytes <= 0 || len(output) <= maxBytes {
		return output
	}
	return output[:maxBytes] + "\n... truncated"
}
