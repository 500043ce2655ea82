package basic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/auth"
	"github.com/edgeopslabs/appkit/pkg/registry"
	"github.com/edgeopslabs/appkit/pkg/restclient"
)

func TestGetClientBindsHeaders(t *testing.T) {
	a := New()
	client, err := a.GetClient(app.ClientParams{
		Config:     map[string]any{"url": "https://x.test"},
		AuthType:   AuthType,
		AuthParams: map[string]any{"key": "K"},
	})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	rc := client.(*restclient.Client)
	headers := rc.Headers()
	if headers["Authorization"] != "Bearer K" {
		t.Fatalf("expected bearer header, got %q", headers["Authorization"])
	}
	if headers["Accept"] != "application/json" {
		t.Fatalf("expected json accept header, got %q", headers["Accept"])
	}
	if want := auth.Resolve("bearer", map[string]any{"token": "K"}); headers["Authorization"] != want["Authorization"] {
		t.Fatalf("expected resolver bearer header %q, got %q", want["Authorization"], headers["Authorization"])
	}
	if len(headers) != 2 {
		t.Fatalf("expected only Authorization and Accept, got %v", headers)
	}
	if rc.BaseURL() != "https://x.test" {
		t.Fatalf("unexpected base url %q", rc.BaseURL())
	}
}

func TestGetClientWithoutAuthType(t *testing.T) {
	client, err := New().GetClient(app.ClientParams{Config: map[string]any{"url": "https://x.test"}})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if _, ok := client.(*restclient.Client).Headers()["Authorization"]; ok {
		t.Fatalf("expected no authorization header")
	}
}

func TestPingReturnsResponseData(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PingPath {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"pong":true,"version":"1.2"}`))
	}))
	defer srv.Close()

	a := New()
	client, err := a.GetClient(app.ClientParams{
		Config:     map[string]any{"url": srv.URL},
		AuthType:   AuthType,
		AuthParams: map[string]any{"key": "K"},
	})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	out, err := a.CallTool(context.Background(), app.CallParams{Client: client, ToolName: PingTool})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	data, ok := out.(map[string]any)
	if !ok || data["pong"] != true || data["version"] != "1.2" {
		t.Fatalf("expected response data unchanged, got %v", out)
	}
	if gotAuth != "Bearer K" {
		t.Fatalf("expected bearer header upstream, got %q", gotAuth)
	}
}

func TestPingFailurePreservesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := New()
	client, err := a.GetClient(app.ClientParams{Config: map[string]any{"url": srv.URL}})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	_, err = a.CallTool(context.Background(), app.CallParams{Client: client, ToolName: PingTool})

	var upstream *app.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upstream.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", upstream.Code)
	}
	if upstream.Error() != "Ping failed: GET /ping failed with status 401" {
		t.Fatalf("unexpected message %q", upstream.Error())
	}
}

func TestUnknownToolNotFound(t *testing.T) {
	a := New()
	_, err := a.CallTool(context.Background(), app.CallParams{ToolName: "pong"})
	if !app.IsToolNotFound(err) || err.Error() != "Tool pong not found" {
		t.Fatalf("expected tool not found, got %v", err)
	}
}

func TestDescriptor(t *testing.T) {
	a := New()
	if a.Key() != ID || !a.Singleton || !a.HasFeature(app.FeatureToolkit) {
		t.Fatalf("unexpected descriptor %+v", a.Descriptor)
	}
	if missing := a.ConfigSchema.MissingRequired(); len(missing) != 0 {
		t.Fatalf("unexpected missing required %v", missing)
	}
	if fields := a.AuthSchemas[AuthType].SensitiveFields(); len(fields) != 1 || fields[0] != "key" {
		t.Fatalf("expected key to be sensitive, got %v", fields)
	}
	if _, ok := registry.Lookup(ID); !ok {
		t.Fatalf("expected app registered on init")
	}
}
