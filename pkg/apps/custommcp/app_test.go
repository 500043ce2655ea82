package custommcp

import (
	"testing"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/apps/mcpapp"
)

func TestDescriptor(t *testing.T) {
	a := New()
	if a.Key() != ID || a.Singleton {
		t.Fatalf("unexpected descriptor %+v", a.Descriptor)
	}
	want := []string{"basic", "bearer", "headers", "none"}
	got := a.AuthTypes()
	if len(got) != len(want) {
		t.Fatalf("expected auth types %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected auth types %v, got %v", want, got)
		}
	}
}

func TestHeadersSchemaRejectsInvalidHeaderName(t *testing.T) {
	headers := New().AuthSchemas["headers"]

	valid := []any{map[string]any{"key": "X-Api-Key", "value": "abc"}}
	if err := headers.Validate(valid); err != nil {
		t.Fatalf("expected valid headers, got %v", err)
	}
	invalid := []any{map[string]any{"key": "Bad Header", "value": "abc"}}
	if err := headers.Validate(invalid); err == nil {
		t.Fatalf("expected header name with a space to be rejected")
	}
}

func TestGetClientResolvesEveryAuthType(t *testing.T) {
	a := New()
	cases := []struct {
		authType string
		params   any
		want     map[string]string
	}{
		{"none", nil, map[string]string{}},
		{"basic", map[string]any{"username": "u", "password": "p"}, map[string]string{"Authorization": "Basic dTpw"}},
		{"bearer", map[string]any{"token": "T"}, map[string]string{"Authorization": "Bearer T"}},
		{"headers", []any{map[string]any{"key": "X-A", "value": "1"}}, map[string]string{"X-A": "1"}},
	}
	for _, tc := range cases {
		c, err := a.GetClient(app.ClientParams{
			Config:     map[string]any{"url": "https://mcp.example.com/mcp"},
			AuthType:   tc.authType,
			AuthParams: tc.params,
		})
		if err != nil {
			t.Fatalf("%s: get client: %v", tc.authType, err)
		}
		got := c.(*mcpapp.Client).Headers()
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.authType, tc.want, got)
		}
		for key, value := range tc.want {
			if got[key] != value {
				t.Fatalf("%s: expected %v, got %v", tc.authType, tc.want, got)
			}
		}
	}
}
