// Package schema provides a typed, validated view over the JSON-schema
// documents apps declare for configuration and credentials.
//
// A Document is decoded and compiled once, when the app is declared or
// loaded. UI annotations (keys prefixed with "@") are exposed as typed fields
// and otherwise ignored by validation.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const resourceURL = "https://appkit.local/schema.json"

type Document struct {
	Type                 string
	Title                string
	Description          string
	Placeholder          string
	Pattern              string
	Sensitive            bool
	Properties           map[string]*Document
	Required             []string
	AdditionalProperties *bool
	Items                *Document

	raw      map[string]any
	compiled *jsonschema.Schema
}

// Parse decodes a JSON-schema document from JSON bytes.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode schema: document must be a JSON object")
	}
	return FromMap(raw)
}

// MustParse is Parse for package-level schema literals.
func MustParse(data string) *Document {
	doc, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return doc
}

// FromMap builds a Document from an already decoded JSON or YAML object.
func FromMap(m map[string]any) (*Document, error) {
	raw, err := normalize(m)
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema must be an object")
	}

	doc := buildView(obj)
	doc.raw = obj

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	doc.compiled = compiled
	return doc, nil
}

func buildView(obj map[string]any) *Document {
	doc := &Document{
		Type:        stringValue(obj["type"]),
		Title:       stringValue(obj["@title"]),
		Description: stringValue(obj["description"]),
		Placeholder: stringValue(obj["@placeholder"]),
		Pattern:     stringValue(obj["pattern"]),
		raw:         obj,
	}
	if sensitive, ok := obj["@sensitive"].(bool); ok {
		doc.Sensitive = sensitive
	}
	if additional, ok := obj["additionalProperties"].(bool); ok {
		doc.AdditionalProperties = &additional
	}
	if props, ok := obj["properties"].(map[string]any); ok {
		doc.Properties = make(map[string]*Document, len(props))
		for name, value := range props {
			if child, ok := value.(map[string]any); ok {
				doc.Properties[name] = buildView(child)
			}
		}
	}
	if required, ok := obj["required"].([]any); ok {
		for _, item := range required {
			if name, ok := item.(string); ok {
				doc.Required = append(doc.Required, name)
			}
		}
	}
	if items, ok := obj["items"].(map[string]any); ok {
		doc.Items = buildView(items)
	}
	return doc
}

// Validate checks a decoded value against the compiled schema.
func (d *Document) Validate(value any) error {
	if d == nil || d.compiled == nil {
		return fmt.Errorf("schema not compiled")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var instance any
	if err := decoder.Decode(&instance); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return d.compiled.Validate(instance)
}

// MissingRequired lists names from "required" that "properties" does not declare.
func (d *Document) MissingRequired() []string {
	if d == nil {
		return nil
	}
	var missing []string
	for _, name := range d.Required {
		if _, ok := d.Properties[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// SensitiveFields returns the property names annotated with "@sensitive",
// including properties of array items.
func (d *Document) SensitiveFields() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	collectSensitive(d, seen)
	if d.Items != nil {
		collectSensitive(d.Items, seen)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectSensitive(d *Document, seen map[string]struct{}) {
	for name, prop := range d.Properties {
		if prop.Sensitive {
			seen[name] = struct{}{}
		}
	}
}

// Raw returns a deep copy of the document as decoded JSON.
func (d *Document) Raw() map[string]any {
	if d == nil {
		return nil
	}
	copied, err := normalize(d.raw)
	if err != nil {
		return nil
	}
	obj, _ := copied.(map[string]any)
	return obj
}

// Equal reports whether two documents are structurally identical.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return reflect.DeepEqual(d.raw, other.raw)
}

func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.raw)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	parsed, err := FromMap(raw)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// normalize round-trips a value through JSON so maps decoded from YAML and
// Go literals compare equal to documents decoded from JSON.
func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return out, nil
}

func stringValue(value any) string {
	s, _ := value.(string)
	return s
}
