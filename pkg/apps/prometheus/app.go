package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/auth"
	"github.com/edgeopslabs/appkit/pkg/registry"
	"github.com/edgeopslabs/appkit/pkg/restclient"
	"github.com/edgeopslabs/appkit/pkg/schema"
)

const (
	ID              = "prometheus"
	queryMetricTool = "query_metric"
)

const configSchema = `{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "@title": "Prometheus URL",
      "@placeholder": "http://prometheus:9090"
    }
  },
  "required": ["url"],
  "additionalProperties": false
}`

func New() *app.App {
	a := app.Base()
	a.ID = ID
	a.Name = "Prometheus"
	a.Categories = []app.Category{app.CategoryCustomTool}
	a.Features = []app.Feature{app.FeatureToolkit}
	a.ConfigSchema = schema.MustParse(configSchema)
	a.AuthSchemas = map[string]*schema.Document{
		"none": schema.MustParse(`{"type":"object","additionalProperties":false}`),
		"basic": schema.MustParse(`{
  "type": "object",
  "properties": {
    "username": {"type": "string", "@title": "Username"},
    "password": {"type": "string", "@title": "Password", "@sensitive": true}
  },
  "required": ["username", "password"],
  "additionalProperties": false
}`),
		"bearer": schema.MustParse(`{
  "type": "object",
  "properties": {
    "token": {"type": "string", "@title": "Token", "@sensitive": true}
  },
  "required": ["token"],
  "additionalProperties": false
}`),
	}
	a.Content = map[string]any{
		"shortDescription": "Query Prometheus metrics with PromQL.",
	}

	tools := app.NewToolSet().Add(app.ToolSpec{
		Name:        queryMetricTool,
		Title:       "Query metric",
		Description: "Query a Prometheus metric using PromQL.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "PromQL query string"},
			},
			"required": []any{"query"},
		},
		ReadOnly: true,
	}, handleQueryMetric)

	a.GetClient = getClient
	a.GetTools = tools.GetTools
	a.CallTool = tools.CallTool
	return a
}

func getClient(p app.ClientParams) (app.Client, error) {
	headers := auth.Resolve(p.AuthType, p.AuthParams)
	headers["Accept"] = "application/json"
	return restclient.New(cast.ToString(p.Config["url"]), headers, restclient.WithHTTPClient(p.HTTPClient))
}

func handleQueryMetric(ctx context.Context, client app.Client, args map[string]any) (any, error) {
	rc, ok := client.(*restclient.Client)
	if !ok {
		return nil, fmt.Errorf("unexpected client %T", client)
	}
	query := strings.TrimSpace(cast.ToString(args["query"]))
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	endpoint, err := buildQueryURL(rc.BaseURL(), query)
	if err != nil {
		return nil, fmt.Errorf("invalid prometheus url: %w", err)
	}

	resp, err := rc.Get(ctx, endpoint)
	if err != nil {
		var statusErr *restclient.StatusError
		if errors.As(err, &statusErr) {
			if body, ok := statusErr.Data.(map[string]any); ok && body["error"] != nil {
				return nil, &app.UpstreamError{
					Tool:    queryMetricTool,
					Code:    statusErr.StatusCode,
					Message: fmt.Sprintf("prometheus error: %v", body["error"]),
					Err:     err,
				}
			}
		}
		return nil, err
	}

	var payload prometheusResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Status != "success" {
		if payload.Error != "" {
			return nil, fmt.Errorf("prometheus error: %s", payload.Error)
		}
		return nil, fmt.Errorf("prometheus query failed")
	}

	return map[string]any{
		"summary":    formatResult(payload, query),
		"resultType": payload.Data.ResultType,
		"result":     payload.Data.Result,
	}, nil
}

type prometheusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   struct {
		ResultType string                   `json:"resultType"`
		Result     []prometheusVectorResult `json:"result"`
	} `json:"data"`
}

type prometheusVectorResult struct {
	Metric map[string]string `json:"metric"`
	Value  []any             `json:"value"`
}

func buildQueryURL(baseURL, query string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return "", fmt.Errorf("base url is empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("base url must include scheme and host")
	}

	path := strings.TrimRight(parsed.Path, "/")
	parsed.Path = path + "/api/v1/query"

	q := parsed.Query()
	q.Set("query", query)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func formatResult(payload prometheusResponse, query string) string {
	if len(payload.Data.Result) == 0 {
		return fmt.Sprintf("prometheus: query=%q returned no data", query)
	}

	lines := make([]string, 0, len(payload.Data.Result)+1)
	lines = append(lines, fmt.Sprintf("prometheus: query=%q resultType=%s", query, payload.Data.ResultType))
	for _, item := range payload.Data.Result {
		lines = append(lines, fmt.Sprintf("- metric=%s value=%s", formatMetric(item.Metric), formatValue(item.Value)))
	}
	return strings.Join(lines, "\n")
}

// formatMetric renders labels in sorted order so output is stable.
func formatMetric(metric map[string]string) string {
	if len(metric) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(metric))
	for key := range metric {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(metric))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", key, metric[key]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(value []any) string {
	if len(value) < 2 {
		return "unknown"
	}
	return fmt.Sprintf("%v @ %v", value[1], value[0])
}

func init() {
	registry.Register(New())
}
