package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type codedErr struct{ code int }

func (e codedErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e codedErr) HTTPStatusCode() int { return e.code }

func TestNormalizeID(t *testing.T) {
	cases := map[string]string{
		"Basic Integration": "basic-integration",
		"  MCP  Server ":    "mcp-server",
		"E-Commerce/Shop 2": "e-commerce-shop-2",
		"!!!":               "",
	}
	for in, want := range cases {
		if got := NormalizeID(in); got != want {
			t.Fatalf("NormalizeID(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestDescriptorKeyDefaultsToName(t *testing.T) {
	d := Descriptor{Name: "Basic Integration"}
	if d.Key() != "basic-integration" {
		t.Fatalf("expected normalized name, got %q", d.Key())
	}
	d.ID = "custom"
	if d.Key() != "custom" {
		t.Fatalf("expected explicit id, got %q", d.Key())
	}
}

func TestBaseContract(t *testing.T) {
	base := Base()
	if base.ID != "app" || base.Name != "App" {
		t.Fatalf("unexpected base identity: %s/%s", base.ID, base.Name)
	}
	if !base.GetConfigSchema().Equal(base.ConfigSchema) {
		t.Fatalf("GetConfigSchema must return the config schema")
	}
	if _, ok := base.GetAuthSchemas()["none"]; !ok {
		t.Fatalf("base contract must declare the none auth schema")
	}
	if _, err := base.GetClient(ClientParams{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented from getClient, got %v", err)
	}
	if _, err := base.GetTools(context.Background(), ToolsParams{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented from getTools, got %v", err)
	}
	if _, err := base.CallTool(context.Background(), CallParams{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented from callTool, got %v", err)
	}
}

func TestDescriptorDocument(t *testing.T) {
	doc, err := Base().Document()
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc["name"] != "App" {
		t.Fatalf("expected name in document, got %v", doc["name"])
	}
	if _, ok := doc["uiLabels"].([]any); !ok {
		t.Fatalf("expected uiLabels array, got %T", doc["uiLabels"])
	}
	if _, ok := doc["configSchema"].(map[string]any); !ok {
		t.Fatalf("expected configSchema object, got %T", doc["configSchema"])
	}
	if _, ok := doc["singleton"].(bool); !ok {
		t.Fatalf("expected singleton boolean")
	}
}

func TestToolSetDispatch(t *testing.T) {
	set := NewToolSet().Add(ToolSpec{Name: "echo"}, func(_ context.Context, _ Client, args map[string]any) (any, error) {
		return args["text"], nil
	})

	tools, err := set.GetTools(context.Background(), ToolsParams{})
	if err != nil || len(tools) != 1 {
		t.Fatalf("expected one tool, got %v (%v)", tools, err)
	}
	got, err := set.CallTool(context.Background(), CallParams{ToolName: "echo", Args: map[string]any{"text": "hi"}})
	if err != nil || got != "hi" {
		t.Fatalf("expected echo result, got %v (%v)", got, err)
	}
}

func TestToolSetNotFoundIsExactMatch(t *testing.T) {
	set := NewToolSet().Add(ToolSpec{Name: "ping"}, func(context.Context, Client, map[string]any) (any, error) {
		return "pong", nil
	})
	for _, name := range []string{"pin", "Ping", "ping ", "pingx", ""} {
		_, err := set.CallTool(context.Background(), CallParams{ToolName: name})
		var notFound *ToolNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("%q: expected ToolNotFoundError, got %v", name, err)
		}
		if notFound.Tool != name {
			t.Fatalf("expected tool name %q, got %q", name, notFound.Tool)
		}
	}
}

func TestToolSetWrapsHandlerErrors(t *testing.T) {
	cause := codedErr{code: 502}
	set := NewToolSet().Add(ToolSpec{Name: "ping"}, func(context.Context, Client, map[string]any) (any, error) {
		return nil, cause
	})
	set.ErrorPrefix = func(string) string { return "Ping failed: " }

	_, err := set.CallTool(context.Background(), CallParams{ToolName: "ping"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Code != 502 || StatusCodeOf(err) != 502 {
		t.Fatalf("expected status 502 preserved, got %d", upstream.Code)
	}
	if err.Error() != "Ping failed: status 502" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected original cause in chain")
	}
}

func TestValidEnumerations(t *testing.T) {
	if !ValidCategory("cms") || ValidCategory("crm") {
		t.Fatalf("category enumeration mismatch")
	}
	if !ValidFeature("toolkit") || !ValidFeature("channel") || ValidFeature("webhook") {
		t.Fatalf("feature enumeration mismatch")
	}
}
