// Package basic is the reference HTTP app: a single server URL, an API key
// sent as a bearer token and a ping tool.
package basic

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/auth"
	"github.com/edgeopslabs/appkit/pkg/registry"
	"github.com/edgeopslabs/appkit/pkg/restclient"
	"github.com/edgeopslabs/appkit/pkg/schema"
)

const (
	ID       = "basic-integration"
	AuthType = "apiKey"
	PingTool = "ping"
	PingPath = "/ping"
)

const configSchema = `{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "@title": "Server URL",
      "@placeholder": "https://api.your-service.com"
    }
  },
  "required": ["url"],
  "additionalProperties": false
}`

const apiKeySchema = `{
  "type": "object",
  "properties": {
    "key": {
      "type": "string",
      "@title": "API Key",
      "@sensitive": true
    }
  },
  "required": ["key"],
  "additionalProperties": false
}`

// New returns the Basic Integration app.
func New() *app.App {
	a := app.Base()
	a.ID = ID
	a.Name = "Basic Integration"
	a.Categories = []app.Category{app.CategoryMessaging}
	a.Features = []app.Feature{app.FeatureToolkit}
	a.Singleton = true
	a.ConfigSchema = schema.MustParse(configSchema)
	a.AuthSchemas = map[string]*schema.Document{
		AuthType: schema.MustParse(apiKeySchema),
	}
	a.Content = map[string]any{
		"shortDescription": "Connects to a JSON API secured with an API key.",
	}

	tools := app.NewToolSet().Add(app.ToolSpec{
		Name:        PingTool,
		Title:       "Ping Service",
		Description: "Checks connectivity to the service",
		InputSchema: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
		OutputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{"type": "string"},
			},
		},
		ReadOnly: true,
	}, ping)
	tools.ErrorPrefix = func(string) string { return "Ping failed: " }

	a.GetClient = getClient
	a.GetTools = tools.GetTools
	a.CallTool = tools.CallTool
	return a
}

func getClient(p app.ClientParams) (app.Client, error) {
	baseURL := cast.ToString(p.Config["url"])
	// The API key travels as a bearer token.
	headers := map[string]string{}
	if p.AuthType == AuthType {
		params := cast.ToStringMap(p.AuthParams)
		headers = auth.Resolve(string(auth.Bearer), map[string]any{"token": params["key"]})
	}
	headers["Accept"] = "application/json"
	return restclient.New(baseURL, headers, restclient.WithHTTPClient(p.HTTPClient))
}

func ping(ctx context.Context, client app.Client, _ map[string]any) (any, error) {
	rc, ok := client.(*restclient.Client)
	if !ok {
		return nil, fmt.Errorf("unexpected client %T", client)
	}
	resp, err := rc.Get(ctx, PingPath)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func init() {
	registry.Register(New())
}
