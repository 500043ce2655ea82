// Package custommcp connects any MCP server reachable over streamable HTTP.
package custommcp

import (
	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/apps/mcpapp"
	"github.com/edgeopslabs/appkit/pkg/registry"
	"github.com/edgeopslabs/appkit/pkg/schema"
)

const ID = "custom-mcp-server"

const configSchema = `{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "@title": "URL",
      "@placeholder": "https://mcp.example.com"
    }
  },
  "required": ["url"],
  "additionalProperties": false
}`

const noneSchema = `{"type": "object", "additionalProperties": false}`

const basicSchema = `{
  "type": "object",
  "properties": {
    "username": {
      "type": "string",
      "description": "The username to authenticate with the MCP server",
      "@title": "Username",
      "@placeholder": "Add your username"
    },
    "password": {
      "type": "string",
      "description": "The password to authenticate with the MCP server",
      "@title": "Password",
      "@placeholder": "Add your password",
      "@sensitive": true
    }
  },
  "required": ["username", "password"],
  "additionalProperties": false
}`

const bearerSchema = `{
  "type": "object",
  "properties": {
    "token": {
      "type": "string",
      "description": "The token to authenticate with the MCP server",
      "@title": "Token",
      "@placeholder": "Add your access token",
      "@sensitive": true
    }
  },
  "required": ["token"],
  "additionalProperties": false
}`

// Header names follow the RFC 7230 token grammar.
const headersSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "key": {
        "type": "string",
        "description": "The name of the header to authenticate with the MCP server",
        "pattern": "^[!#$%&'*+\\-.^_` + "`" + `|~0-9a-zA-Z]+$",
        "@title": "Header",
        "@placeholder": "Add your header name"
      },
      "value": {
        "type": "string",
        "description": "The value of the header to authenticate with the MCP server",
        "@title": "Header",
        "@placeholder": "Add your header value",
        "@sensitive": true
      }
    },
    "additionalProperties": false
  }
}`

func New() *app.App {
	a := app.Base()
	a.ID = ID
	a.Name = "MCP Server"
	a.Categories = []app.Category{app.CategoryCustomTool}
	a.Features = []app.Feature{app.FeatureToolkit}
	a.Singleton = false
	a.ConfigSchema = schema.MustParse(configSchema)
	a.AuthSchemas = map[string]*schema.Document{
		"none":    schema.MustParse(noneSchema),
		"basic":   schema.MustParse(basicSchema),
		"bearer":  schema.MustParse(bearerSchema),
		"headers": schema.MustParse(headersSchema),
	}
	a.Content = map[string]any{
		"shortDescription": "Use the tools of any MCP server.",
	}
	return mcpapp.New(a)
}

func init() {
	registry.Register(New())
}
