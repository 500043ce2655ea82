// Package app defines the contract every integration app satisfies: a static
// descriptor (identity, schemas, content) plus a function table for client
// construction, tool enumeration and tool dispatch.
//
// Apps specialise the base contract by composition: start from Base() and
// override fields and functions.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/edgeopslabs/appkit/pkg/schema"
)

type Category string

const (
	CategoryMessaging  Category = "messaging"
	CategoryECommerce  Category = "e-commerce"
	CategoryCMS        Category = "cms"
	CategoryCustomTool Category = "custom-tool"
)

// Categories lists every accepted category.
var Categories = []Category{CategoryMessaging, CategoryECommerce, CategoryCMS, CategoryCustomTool}

type Feature string

const (
	FeatureToolkit Feature = "toolkit"
	FeatureChannel Feature = "channel"
)

// Features lists every accepted feature.
var Features = []Feature{FeatureToolkit, FeatureChannel}

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if string(known) == c {
			return true
		}
	}
	return false
}

func ValidFeature(f string) bool {
	for _, known := range Features {
		if string(known) == f {
			return true
		}
	}
	return false
}

// Descriptor is the static, read-only part of an app.
type Descriptor struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	Categories   []Category                  `json:"categories"`
	Features     []Feature                   `json:"features"`
	UILabels     []string                    `json:"uiLabels"`
	Singleton    bool                        `json:"singleton"`
	ConfigSchema *schema.Document            `json:"configSchema"`
	AuthSchemas  map[string]*schema.Document `json:"authSchemas"`
	Content      map[string]any              `json:"content"`
}

func (d *Descriptor) GetConfigSchema() *schema.Document {
	return d.ConfigSchema
}

func (d *Descriptor) GetAuthSchemas() map[string]*schema.Document {
	return d.AuthSchemas
}

// AuthTypes returns the selectable auth type names in sorted order.
func (d *Descriptor) AuthTypes() []string {
	names := make([]string, 0, len(d.AuthSchemas))
	for name := range d.AuthSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Descriptor) HasFeature(f Feature) bool {
	for _, feature := range d.Features {
		if feature == f {
			return true
		}
	}
	return false
}

// Key returns the descriptor id, falling back to the normalised name.
func (d *Descriptor) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return NormalizeID(d.Name)
}

// Document renders the descriptor as a decoded JSON object.
func (d *Descriptor) Document() (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return doc, nil
}

// NormalizeID derives a stable id from a display name:
// "Basic Integration" becomes "basic-integration".
func NormalizeID(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Client is an app-defined handle able to issue authenticated requests.
// Only the app that produced it knows its concrete shape.
type Client any

type ClientParams struct {
	Config     map[string]any
	AuthType   string
	AuthParams any
	// HTTPClient is an optional host-provided transport.
	HTTPClient *http.Client
}

type ToolsParams struct {
	Client Client
}

type CallParams struct {
	Client   Client
	ToolName string
	Args     map[string]any
}

type ClientFunc func(p ClientParams) (Client, error)
type ToolsFunc func(ctx context.Context, p ToolsParams) (map[string]ToolSpec, error)
type CallFunc func(ctx context.Context, p CallParams) (any, error)

// App is a descriptor bound to its operations. GetTools and CallTool may be
// nil for apps that do not declare the toolkit feature.
type App struct {
	Descriptor

	GetClient ClientFunc
	GetTools  ToolsFunc
	CallTool  CallFunc
}

// Base returns the base contract every app starts from.
func Base() *App {
	return &App{
		Descriptor: Descriptor{
			ID:           "app",
			Name:         "App",
			Categories:   []Category{},
			Features:     []Feature{},
			UILabels:     []string{},
			ConfigSchema: schema.MustParse(`{"type":"object","additionalProperties":false}`),
			AuthSchemas: map[string]*schema.Document{
				"none": schema.MustParse(`{"type":"object","additionalProperties":false}`),
			},
			Content: map[string]any{},
		},
		GetClient: func(ClientParams) (Client, error) {
			return nil, fmt.Errorf("getClient: %w", ErrNotImplemented)
		},
		GetTools: func(context.Context, ToolsParams) (map[string]ToolSpec, error) {
			return nil, fmt.Errorf("getTools: %w", ErrNotImplemented)
		},
		CallTool: func(context.Context, CallParams) (any, error) {
			return nil, fmt.Errorf("callTool: %w", ErrNotImplemented)
		},
	}
}
