package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetSendsBoundHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/v2/", map[string]string{"Authorization": "Bearer secret"}, WithHeader("Accept", "application/json"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	resp, err := c.Get(context.Background(), "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer secret" || gotAccept != "application/json" {
		t.Fatalf("unexpected headers: auth=%q accept=%q", gotAuth, gotAccept)
	}
	if gotPath != "/ping" {
		t.Fatalf("absolute path should replace base path, got %q", gotPath)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["status"] != "ok" {
		t.Fatalf("unexpected body %v", resp.Data)
	}
}

func TestGetNon2xxCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Get(context.Background(), "/ping")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.HTTPStatusCode() != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", statusErr.StatusCode)
	}
	if err.Error() != "GET /ping failed with status 401" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if body, ok := statusErr.Data.(map[string]any); !ok || body["error"] != "bad key" {
		t.Fatalf("expected decoded error body, got %v", statusErr.Data)
	}
}

func TestResolveRelativePaths(t *testing.T) {
	c, err := New("https://api.example.com/v1/", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cases := map[string]string{
		"/ping":                      "https://api.example.com/ping",
		"ping":                       "https://api.example.com/v1/ping",
		"https://other.example.com/": "https://other.example.com/",
	}
	for in, want := range cases {
		got, err := c.Resolve(in)
		if err != nil || got != want {
			t.Fatalf("Resolve(%q): expected %q, got %q (%v)", in, want, got, err)
		}
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "not a url", "/relative"} {
		if _, err := New(base, nil); err == nil {
			t.Fatalf("expected error for base %q", base)
		}
	}
}
