package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edgeopslabs/appkit/pkg/app"
)

func TestBuildQueryURL(t *testing.T) {
	got, err := buildQueryURL("http://prom:9090/prometheus/", "up")
	if err != nil {
		t.Fatalf("build url: %v", err)
	}
	if got != "http://prom:9090/prometheus/api/v1/query?query=up" {
		t.Fatalf("unexpected url %q", got)
	}
	if _, err := buildQueryURL("prom:9090", "up"); err == nil {
		t.Fatalf("expected error for url without host")
	}
}

func TestFormatResult(t *testing.T) {
	var payload prometheusResponse
	payload.Data.ResultType = "vector"
	payload.Data.Result = []prometheusVectorResult{{
		Metric: map[string]string{"job": "api", "instance": "a:1"},
		Value:  []any{1700000000.0, "1"},
	}}
	got := formatResult(payload, "up")
	want := "prometheus: query=\"up\" resultType=vector\n- metric={instance=\"a:1\", job=\"api\"} value=1 @ 1.7e+09"
	if got != want {
		t.Fatalf("unexpected output:\n%s", got)
	}

	payload.Data.Result = nil
	if got := formatResult(payload, "up"); !strings.Contains(got, "returned no data") {
		t.Fatalf("unexpected empty output %q", got)
	}
}

func TestQueryMetric(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{"job":"api"},"value":[1,"1"]}]}}`))
	}))
	defer srv.Close()

	a := New()
	client, err := a.GetClient(app.ClientParams{
		Config:     map[string]any{"url": srv.URL},
		AuthType:   "bearer",
		AuthParams: map[string]any{"token": "T"},
	})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	out, err := a.CallTool(context.Background(), app.CallParams{
		Client:   client,
		ToolName: queryMetricTool,
		Args:     map[string]any{"query": "up"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if gotAuth != "Bearer T" || gotQuery != "up" {
		t.Fatalf("unexpected request auth=%q query=%q", gotAuth, gotQuery)
	}
	result := out.(map[string]any)
	if result["resultType"] != "vector" || !strings.Contains(result["summary"].(string), `job="api"`) {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestQueryMetricUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","error":"parse error"}`))
	}))
	defer srv.Close()

	a := New()
	client, err := a.GetClient(app.ClientParams{Config: map[string]any{"url": srv.URL}})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	_, err = a.CallTool(context.Background(), app.CallParams{
		Client:   client,
		ToolName: queryMetricTool,
		Args:     map[string]any{"query": "up{"},
	})
	if !app.IsUpstream(err) || app.StatusCodeOf(err) != http.StatusBadRequest {
		t.Fatalf("expected upstream 400, got %v", err)
	}
	if err.Error() != "prometheus error: parse error" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestQueryMetricRequiresQuery(t *testing.T) {
	a := New()
	client, err := a.GetClient(app.ClientParams{Config: map[string]any{"url": "http://prom:9090"}})
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	_, err = a.CallTool(context.Background(), app.CallParams{Client: client, ToolName: queryMetricTool})
	if err == nil || err.Error() != "query_metric failed: query is required" {
		t.Fatalf("unexpected error %v", err)
	}
}
