package conformance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/bundle"
	"github.com/edgeopslabs/appkit/pkg/schema"
)

// checkDescriptor runs the static checks over a descriptor document.
func checkDescriptor(doc map[string]any) []Violation {
	checks := []func(map[string]any) []Violation{
		checkName,
		checkCategories,
		checkFeatures,
		checkUILabels,
		checkSingleton,
		checkConfigSchema,
		checkAuthSchemas,
	}
	diags := make([]Violation, 0)
	for _, check := range checks {
		diags = append(diags, check(doc)...)
	}
	return diags
}

func checkName(doc map[string]any) []Violation {
	name, ok := doc["name"].(string)
	if !ok {
		return []Violation{errViolation("AD-001", fmt.Sprintf("name must be a string, got %s", typeName(doc["name"])), "name")}
	}
	if strings.TrimSpace(name) == "" {
		return []Violation{errViolation("AD-001", "name must not be empty", "name")}
	}
	return nil
}

func checkCategories(doc map[string]any) []Violation {
	return checkEnumArray(doc, "AD-002", "categories", app.ValidCategory, categoryNames())
}

func checkFeatures(doc map[string]any) []Violation {
	return checkEnumArray(doc, "AD-003", "features", app.ValidFeature, featureNames())
}

func checkEnumArray(doc map[string]any, code, field string, valid func(string) bool, allowed []string) []Violation {
	items, ok := doc[field].([]any)
	if !ok {
		return []Violation{errViolation(code, fmt.Sprintf("%s must be an array, got %s", field, typeName(doc[field])), field)}
	}
	var diags []Violation
	for i, item := range items {
		value, ok := item.(string)
		if !ok || !valid(value) {
			diags = append(diags, errViolation(code,
				fmt.Sprintf("%v is not one of %s", item, strings.Join(allowed, ", ")),
				fmt.Sprintf("%s[%d]", field, i)))
		}
	}
	return diags
}

func checkUILabels(doc map[string]any) []Violation {
	items, ok := doc["uiLabels"].([]any)
	if !ok {
		return []Violation{errViolation("AD-004", fmt.Sprintf("uiLabels must be an array, got %s", typeName(doc["uiLabels"])), "uiLabels")}
	}
	var diags []Violation
	for i, item := range items {
		if _, ok := item.(string); !ok {
			diags = append(diags, errViolation("AD-004", fmt.Sprintf("uiLabels entries must be strings, got %s", typeName(item)), fmt.Sprintf("uiLabels[%d]", i)))
		}
	}
	return diags
}

func checkSingleton(doc map[string]any) []Violation {
	if _, ok := doc["singleton"].(bool); !ok {
		return []Violation{errViolation("AD-005", fmt.Sprintf("singleton must be a boolean, got %s", typeName(doc["singleton"])), "singleton")}
	}
	return nil
}

func checkConfigSchema(doc map[string]any) []Violation {
	obj, ok := doc["configSchema"].(map[string]any)
	if !ok {
		return []Violation{errViolation("AD-006", fmt.Sprintf("configSchema must be an object, got %s", typeName(doc["configSchema"])), "configSchema")}
	}
	return checkSchema("configSchema", obj)
}

func checkAuthSchemas(doc map[string]any) []Violation {
	obj, ok := doc["authSchemas"].(map[string]any)
	if !ok {
		return []Violation{errViolation("AD-007", fmt.Sprintf("authSchemas must be an object, got %s", typeName(doc["authSchemas"])), "authSchemas")}
	}
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags []Violation
	for _, name := range names {
		path := "authSchemas." + name
		schemaObj, ok := obj[name].(map[string]any)
		if !ok {
			diags = append(diags, errViolation("AD-007", fmt.Sprintf("auth schema must be an object, got %s", typeName(obj[name])), path))
			continue
		}
		diags = append(diags, checkSchema(path, schemaObj)...)
	}
	return diags
}

// checkSchema runs the per-schema checks: the document compiles, every
// required name is declared, and object schemas close additionalProperties.
func checkSchema(path string, obj map[string]any) []Violation {
	var diags []Violation
	if doc, err := schema.FromMap(obj); err != nil {
		diags = append(diags, errViolation("AD-009", fmt.Sprintf("schema does not compile: %v", err), path))
	} else {
		diags = append(diags, checkRequiredDeclared(path, doc)...)
		if doc.Items != nil {
			diags = append(diags, checkRequiredDeclared(path+".items", doc.Items)...)
		}
	}

	if obj["type"] == "object" && obj["additionalProperties"] != false {
		diags = append(diags, warnViolation("AD-010", "additionalProperties should be false", path+".additionalProperties"))
	}
	return diags
}

// checkRequiredDeclared reports one violation per required name missing
// from properties.
func checkRequiredDeclared(path string, doc *schema.Document) []Violation {
	var diags []Violation
	for _, name := range doc.MissingRequired() {
		diags = append(diags, errViolation("AD-008", fmt.Sprintf("required property %q is not declared in properties", name), path+".properties."+name))
	}
	return diags
}

// checkBuiltinIdentity reports manifest id and name values that disagree
// with the compiled app the bundle is bound to.
func checkBuiltinIdentity(manifest bundle.Manifest, a *app.App) []Violation {
	var diags []Violation
	if manifest.ID != "" && manifest.ID != a.Key() {
		diags = append(diags, errViolation("AD-015", fmt.Sprintf("id %q does not match compiled app %q", manifest.ID, a.Key()), "id"))
	}
	if manifest.Name != "" && manifest.Name != a.Name {
		diags = append(diags, errViolation("AD-015", fmt.Sprintf("name %q does not match compiled app name %q", manifest.Name, a.Name), "name"))
	}
	return diags
}

// checkBehaviour checks the function table of a resolved app.
func checkBehaviour(a *app.App, doc map[string]any) []Violation {
	var diags []Violation

	if !schemaEqual(a.GetConfigSchema(), doc["configSchema"]) {
		diags = append(diags, errViolation("AD-011", "getConfigSchema must return configSchema", "getConfigSchema"))
	}
	if !authSchemasEqual(a.GetAuthSchemas(), doc["authSchemas"]) {
		diags = append(diags, errViolation("AD-011", "getAuthSchemas must return authSchemas", "getAuthSchemas"))
	}

	if a.GetClient == nil {
		diags = append(diags, errViolation("AD-012", "getClient must be implemented", "getClient"))
	}

	toolkit := a.HasFeature(app.FeatureToolkit)
	if toolkit && a.GetTools == nil {
		diags = append(diags, errViolation("AD-013", "getTools is required by the toolkit feature", "getTools"))
	}
	if toolkit && a.CallTool == nil {
		diags = append(diags, errViolation("AD-013", "callTool is required by the toolkit feature", "callTool"))
	}
	return diags
}

func authSchemasEqual(got map[string]*schema.Document, want any) bool {
	wantObj, ok := want.(map[string]any)
	if !ok || len(got) != len(wantObj) {
		return false
	}
	for name, doc := range got {
		if !schemaEqual(doc, wantObj[name]) {
			return false
		}
	}
	return true
}

// schemaEqual compares a compiled schema with a descriptor's decoded one.
func schemaEqual(got *schema.Document, want any) bool {
	obj, ok := want.(map[string]any)
	if !ok || got == nil {
		return false
	}
	doc, err := schema.FromMap(obj)
	return err == nil && got.Equal(doc)
}

// checkDeclaredTools checks tools declared in a command manifest.
func checkDeclaredTools(doc map[string]any) []Violation {
	raw, ok := doc["tools"]
	if !ok {
		if features, _ := doc["features"].([]any); containsString(features, string(app.FeatureToolkit)) {
			return []Violation{errViolation("AD-014", "toolkit apps must declare at least one tool", "tools")}
		}
		return nil
	}
	tools, ok := raw.([]any)
	if !ok {
		return []Violation{errViolation("AD-014", fmt.Sprintf("tools must be an array, got %s", typeName(raw)), "tools")}
	}

	var diags []Violation
	seen := make(map[string]bool, len(tools))
	for i, item := range tools {
		path := fmt.Sprintf("tools[%d]", i)
		tool, ok := item.(map[string]any)
		if !ok {
			diags = append(diags, errViolation("AD-014", fmt.Sprintf("tool must be an object, got %s", typeName(item)), path))
			continue
		}
		name, _ := tool["name"].(string)
		if name == "" {
			diags = append(diags, errViolation("AD-014", "tool name must be a non-empty string", path+".name"))
		} else if seen[name] {
			diags = append(diags, errViolation("AD-014", fmt.Sprintf("duplicate tool name %q", name), path+".name"))
		}
		seen[name] = true

		if input, present := tool["inputSchema"]; present {
			obj, ok := input.(map[string]any)
			if !ok || obj["type"] != "object" {
				diags = append(diags, errViolation("AD-014", "inputSchema must be an object schema", path+".inputSchema"))
			}
		}
	}
	return diags
}

func containsString(items []any, want string) bool {
	for _, item := range items {
		if s, ok := item.(string); ok && s == want {
			return true
		}
	}
	return false
}

func categoryNames() []string {
	out := make([]string, 0, len(app.Categories))
	for _, c := range app.Categories {
		out = append(out, string(c))
	}
	return out
}

func featureNames() []string {
	out := make([]string, 0, len(app.Features))
	for _, f := range app.Features {
		out = append(out, string(f))
	}
	return out
}
