package policy

import (
	"testing"

	"github.com/edgeopslabs/appkit/pkg/config"
)

func TestPolicyDenyOverrides(t *testing.T) {
	cfg := config.PolicyConfig{
		DenyTools: []string{"list_pods"},
	}
	p := New(cfg, false)
	if p.Evaluate("kubernetes", "list_pods", true) != Deny {
		t.Fatalf("expected deny")
	}
}

func TestPolicyDenyInstance(t *testing.T) {
	p := New(config.PolicyConfig{DenyInstances: []string{"mcp-*"}}, false)
	if p.Evaluate("mcp-prod", "echo", true) != Deny {
		t.Fatalf("expected deny for matching instance")
	}
	if p.Evaluate("basic-integration", "ping", true) != Allow {
		t.Fatalf("expected allow for other instance")
	}
}

func TestPolicyAllowList(t *testing.T) {
	cfg := config.PolicyConfig{
		AllowTools: []string{"query_metric"},
	}
	p := New(cfg, false)
	if p.Evaluate("kubernetes", "list_pods", true) != Deny {
		t.Fatalf("expected deny when allowlist does not match")
	}
	if p.Evaluate("prometheus", "query_metric", true) != Allow {
		t.Fatalf("expected allow for allowlisted tool")
	}
}

func TestPolicyConfirm(t *testing.T) {
	cfg := config.PolicyConfig{
		ConfirmTools: []string{"kubernetes/list_pods"},
	}
	p := New(cfg, false)
	if p.Evaluate("kubernetes", "list_pods", true) != Confirm {
		t.Fatalf("expected confirm")
	}
	if p.Evaluate("other", "list_pods", true) != Allow {
		t.Fatalf("expected qualified pattern to scope to the instance")
	}
}

func TestSafeModeBlocksSensitive(t *testing.T) {
	p := New(config.PolicyConfig{}, true)
	if p.Evaluate("kubernetes", "delete_pod", false) != Deny {
		t.Fatalf("expected deny for sensitive tool in safe mode")
	}
	if p.Evaluate("kubernetes", "delete_pod", true) != Allow {
		t.Fatalf("expected read-only tool to pass safe mode")
	}
	if p.Evaluate("kubernetes", "list_pods", false) != Allow {
		t.Fatalf("expected allow for non-sensitive tool")
	}
}

func TestDecisionString(t *testing.T) {
	if Allow.String() != "allowed" || Deny.String() != "denied" || Confirm.String() != "confirm" {
		t.Fatalf("unexpected decision labels")
	}
}
