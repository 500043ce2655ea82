package app

import (
	"context"
	"sort"
)

// ToolSpec describes one invocable tool.
type ToolSpec struct {
	Name         string         `json:"name" yaml:"name"`
	Title        string         `json:"title" yaml:"title"`
	Description  string         `json:"description" yaml:"description"`
	InputSchema  map[string]any `json:"inputSchema" yaml:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty" yaml:"outputSchema"`
	ReadOnly     bool           `json:"readOnly,omitempty" yaml:"readOnly"`
}

// ToolHandler executes one tool against a client handle.
type ToolHandler func(ctx context.Context, client Client, args map[string]any) (any, error)

type toolEntry struct {
	spec    ToolSpec
	handler ToolHandler
}

// ToolSet is a static tool table. Its GetTools and CallTool methods satisfy
// the contract for apps whose tools are known at build time.
type ToolSet struct {
	tools map[string]toolEntry
	// ErrorPrefix formats the message of re-signalled handler failures;
	// nil uses "<tool> failed: ".
	ErrorPrefix func(tool string) string
}

func NewToolSet() *ToolSet {
	return &ToolSet{tools: make(map[string]toolEntry)}
}

// Add registers a tool under spec.Name.
func (s *ToolSet) Add(spec ToolSpec, handler ToolHandler) *ToolSet {
	s.tools[spec.Name] = toolEntry{spec: spec, handler: handler}
	return s
}

// Names returns the registered tool names in sorted order.
func (s *ToolSet) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *ToolSet) GetTools(context.Context, ToolsParams) (map[string]ToolSpec, error) {
	out := make(map[string]ToolSpec, len(s.tools))
	for name, entry := range s.tools {
		out[name] = entry.spec
	}
	return out, nil
}

func (s *ToolSet) CallTool(ctx context.Context, p CallParams) (any, error) {
	entry, ok := s.tools[p.ToolName]
	if !ok {
		return nil, &ToolNotFoundError{Tool: p.ToolName}
	}
	args := p.Args
	if args == nil {
		args = map[string]any{}
	}
	result, err := entry.handler(ctx, p.Client, args)
	if err != nil {
		if IsUpstream(err) {
			return nil, err
		}
		prefix := p.ToolName + " failed: "
		if s.ErrorPrefix != nil {
			prefix = s.ErrorPrefix(p.ToolName)
		}
		return nil, NewUpstreamError(p.ToolName, prefix, err)
	}
	return result, nil
}
