package auth

import (
	"encoding/base64"
	"net/http"
	"testing"
)

func TestResolveBasic(t *testing.T) {
	headers := Resolve("basic", map[string]any{"username": "u", "password": "p"})
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("u:p"))
	if headers["Authorization"] != want {
		t.Fatalf("expected %q, got %q", want, headers["Authorization"])
	}
	if len(headers) != 1 {
		t.Fatalf("expected a single header, got %v", headers)
	}
}

func TestResolveBasicMissingFields(t *testing.T) {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":"))
	for _, params := range []any{map[string]any{}, nil, "garbage"} {
		headers := Resolve("basic", params)
		if headers["Authorization"] != want {
			t.Fatalf("params %v: expected %q, got %q", params, want, headers["Authorization"])
		}
	}
}

func TestResolveBearer(t *testing.T) {
	if got := Resolve("bearer", map[string]any{"token": "t"})["Authorization"]; got != "Bearer t" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if got := Resolve("bearer", map[string]any{})["Authorization"]; got != "Bearer " {
		t.Fatalf("expected empty bearer token, got %q", got)
	}
}

func TestResolveNoneAndAbsent(t *testing.T) {
	inputs := []any{nil, map[string]any{"token": "t"}, []any{map[string]any{"key": "X", "value": "y"}}, 42}
	for _, params := range inputs {
		if headers := Resolve("", params); len(headers) != 0 {
			t.Fatalf("absent auth type should yield no headers, got %v", headers)
		}
		if headers := Resolve("none", params); len(headers) != 0 {
			t.Fatalf("none auth type should yield no headers, got %v", headers)
		}
	}
}

func TestResolveUnrecognizedFailsOpen(t *testing.T) {
	creds := Parse("oauth2", map[string]any{"token": "t"})
	if _, ok := creds.(UnrecognizedCredentials); !ok {
		t.Fatalf("expected unrecognized variant, got %T", creds)
	}
	if creds.Type() != Type("oauth2") {
		t.Fatalf("expected type to carry the original name, got %q", creds.Type())
	}
	if len(creds.Headers()) != 0 {
		t.Fatalf("expected no headers for unrecognized auth type")
	}
}

func TestResolveAuthTypeIsExact(t *testing.T) {
	if headers := Resolve(" basic ", map[string]any{"username": "u"}); len(headers) != 0 {
		t.Fatalf("expected padded auth type to resolve to no headers, got %v", headers)
	}
	if got := Parse(" weird ", nil).Type(); got != Type(" weird ") {
		t.Fatalf("expected type to carry the name unchanged, got %q", got)
	}
}

func TestResolveHeadersLastWins(t *testing.T) {
	cases := []struct {
		name   string
		params any
		want   map[string]string
	}{
		{
			name: "ordered entries",
			params: []any{
				map[string]any{"key": "X-Api-Key", "value": "one"},
				map[string]any{"key": "X-Tenant", "value": "acme"},
			},
			want: map[string]string{"X-Api-Key": "one", "X-Tenant": "acme"},
		},
		{
			name: "duplicate keys",
			params: []any{
				map[string]any{"key": "X-Api-Key", "value": "one"},
				map[string]any{"key": "X-Tenant", "value": "acme"},
				map[string]any{"key": "X-Api-Key", "value": "two"},
			},
			want: map[string]string{"X-Api-Key": "two", "X-Tenant": "acme"},
		},
		{
			name: "empty keys skipped",
			params: []any{
				map[string]any{"key": "", "value": "ignored"},
				map[string]any{"value": "ignored"},
				nil,
				map[string]any{"key": "X-A", "value": "a"},
			},
			want: map[string]string{"X-A": "a"},
		},
		{
			name:   "typed entries",
			params: []HeaderEntry{{Key: "X-A", Value: "1"}, {Key: "X-A", Value: "2"}},
			want:   map[string]string{"X-A": "2"},
		},
		{
			name:   "not a sequence",
			params: map[string]any{"key": "X-A", "value": "a"},
			want:   map[string]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve("headers", tc.params)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for key, value := range tc.want {
				if got[key] != value {
					t.Fatalf("header %s: expected %q, got %q", key, value, got[key])
				}
			}
		})
	}
}

func TestApply(t *testing.T) {
	h := http.Header{}
	Apply(h, Resolve("bearer", map[string]any{"token": "abc"}))
	if h.Get("Authorization") != "Bearer abc" {
		t.Fatalf("expected header applied, got %q", h.Get("Authorization"))
	}
}
