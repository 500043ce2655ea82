package schema

import (
	"testing"

	"gopkg.in/yaml.v3"
)

const credentialSchema = `{
	"type": "object",
	"properties": {
		"username": {"type": "string", "@title": "Username", "@placeholder": "Add your username"},
		"password": {"type": "string", "@title": "Password", "@sensitive": true}
	},
	"required": ["username", "password"],
	"additionalProperties": false
}`

func TestParseBuildsTypedView(t *testing.T) {
	doc, err := Parse([]byte(credentialSchema))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Type != "object" {
		t.Fatalf("expected object type, got %q", doc.Type)
	}
	if doc.AdditionalProperties == nil || *doc.AdditionalProperties {
		t.Fatalf("expected additionalProperties=false")
	}
	if doc.Properties["username"].Title != "Username" || doc.Properties["username"].Placeholder != "Add your username" {
		t.Fatalf("expected UI annotations on username, got %+v", doc.Properties["username"])
	}
	if !doc.Properties["password"].Sensitive {
		t.Fatalf("expected password to be sensitive")
	}
	if fields := doc.SensitiveFields(); len(fields) != 1 || fields[0] != "password" {
		t.Fatalf("unexpected sensitive fields: %v", fields)
	}
}

func TestValidate(t *testing.T) {
	doc := MustParse(credentialSchema)
	if err := doc.Validate(map[string]any{"username": "u", "password": "p"}); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
	if err := doc.Validate(map[string]any{"username": "u"}); err == nil {
		t.Fatalf("expected missing password to fail")
	}
	if err := doc.Validate(map[string]any{"username": "u", "password": "p", "extra": 1}); err == nil {
		t.Fatalf("expected additional property to fail")
	}
}

func TestValidateArrayItemsPattern(t *testing.T) {
	doc := MustParse(`{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"key": {"type": "string", "pattern": "^[!#$%&'*+\\-.^_` + "`" + `|~0-9a-zA-Z]+$"},
				"value": {"type": "string", "@sensitive": true}
			},
			"additionalProperties": false
		}
	}`)
	if err := doc.Validate([]any{map[string]any{"key": "X-Api-Key", "value": "v"}}); err != nil {
		t.Fatalf("expected valid header entries, got %v", err)
	}
	if err := doc.Validate([]any{map[string]any{"key": "bad header", "value": "v"}}); err == nil {
		t.Fatalf("expected invalid header name to fail")
	}
	if fields := doc.SensitiveFields(); len(fields) != 1 || fields[0] != "value" {
		t.Fatalf("expected item property to be sensitive, got %v", fields)
	}
}

func TestMissingRequired(t *testing.T) {
	doc := MustParse(`{"type":"object","properties":{"url":{"type":"string"}},"required":["url","token","region"]}`)
	missing := doc.MissingRequired()
	if len(missing) != 2 || missing[0] != "token" || missing[1] != "region" {
		t.Fatalf("expected token and region missing, got %v", missing)
	}
}

func TestParseRejectsInvalidSchema(t *testing.T) {
	if _, err := Parse([]byte(`{"type": 12}`)); err == nil {
		t.Fatalf("expected compile error for invalid type keyword")
	}
	if _, err := Parse([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for non-object schema")
	}
}

func TestYAMLAndJSONDocumentsAreEqual(t *testing.T) {
	var fromYAML Document
	src := "type: object\nproperties:\n  url:\n    type: string\nrequired: [url]\nadditionalProperties: false\n"
	if err := yaml.Unmarshal([]byte(src), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	fromJSON := MustParse(`{"type":"object","properties":{"url":{"type":"string"}},"required":["url"],"additionalProperties":false}`)
	if !fromYAML.Equal(fromJSON) {
		t.Fatalf("expected YAML and JSON documents to compare equal")
	}
}

func TestRawIsACopy(t *testing.T) {
	doc := MustParse(credentialSchema)
	raw := doc.Raw()
	raw["type"] = "array"
	if doc.Raw()["type"] != "object" {
		t.Fatalf("mutating Raw() must not affect the document")
	}
}
