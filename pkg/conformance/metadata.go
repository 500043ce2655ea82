package conformance

import (
	"fmt"
	"strings"
)

// checkMetadata runs the metadata.json checks. A nil document fails every
// required field.
func checkMetadata(doc map[string]any) []Violation {
	content, contentOK := doc["content"].(map[string]any)

	diags := make([]Violation, 0)
	if !contentOK {
		diags = append(diags, errViolation("MD-002", fmt.Sprintf("content must be an object, got %s", typeName(doc["content"])), "content"))
	}

	diags = append(diags, requireString("MD-003", content, "content.shortDescription", "shortDescription")...)

	vendor, _ := content["vendor"].(map[string]any)
	diags = append(diags, requireString("MD-004", vendor, "content.vendor.name", "name")...)

	overview, _ := content["overview"].(map[string]any)
	diags = append(diags, requireString("MD-005", overview, "content.overview.content", "content")...)

	diags = append(diags, checkInstallation(content)...)

	if _, ok := content["resources"].([]any); !ok {
		diags = append(diags, errViolation("MD-007", fmt.Sprintf("resources must be an array, got %s", typeName(content["resources"])), "content.resources"))
	}

	diags = append(diags, checkAssetField(content, "logoImage", "content.logoImage")...)
	diags = append(diags, checkAssetField(overview, "carouselImages", "content.overview.carouselImages")...)
	return diags
}

func requireString(code string, obj map[string]any, path, key string) []Violation {
	value, ok := obj[key].(string)
	if !ok {
		return []Violation{errViolation(code, fmt.Sprintf("%s must be a string, got %s", key, typeName(obj[key])), path)}
	}
	if strings.TrimSpace(value) == "" {
		return []Violation{errViolation(code, fmt.Sprintf("%s must not be empty", key), path)}
	}
	return nil
}

func checkInstallation(content map[string]any) []Violation {
	steps, ok := content["installation"].([]any)
	if !ok {
		return []Violation{errViolation("MD-006", fmt.Sprintf("installation must be an array, got %s", typeName(content["installation"])), "content.installation")}
	}

	var diags []Violation
	for i, item := range steps {
		path := fmt.Sprintf("content.installation[%d]", i)
		step, ok := item.(map[string]any)
		if !ok {
			diags = append(diags, errViolation("MD-006", fmt.Sprintf("step must be an object, got %s", typeName(item)), path))
			continue
		}
		for _, key := range []string{"title", "description"} {
			if _, ok := step[key].(string); !ok {
				diags = append(diags, errViolation("MD-006", fmt.Sprintf("%s must be a string, got %s", key, typeName(step[key])), path+"."+key))
			}
		}
		if images, present := step["images"]; present && images != nil {
			list, ok := images.([]any)
			if !ok {
				diags = append(diags, errViolation("MD-006", fmt.Sprintf("images must be an array, got %s", typeName(images)), path+".images"))
				continue
			}
			for j, asset := range list {
				diags = append(diags, checkAsset(asset, fmt.Sprintf("%s.images[%d]", path, j))...)
			}
		}
	}
	return diags
}

// checkAssetField accepts an optional asset or list of assets under key.
func checkAssetField(obj map[string]any, key, path string) []Violation {
	value, present := obj[key]
	if !present || value == nil {
		return nil
	}
	if list, ok := value.([]any); ok {
		var diags []Violation
		for i, asset := range list {
			diags = append(diags, checkAsset(asset, fmt.Sprintf("%s[%d]", path, i))...)
		}
		return diags
	}
	return checkAsset(value, path)
}

func checkAsset(value any, path string) []Violation {
	asset, ok := value.(map[string]any)
	if !ok {
		return []Violation{errViolation("MD-008", fmt.Sprintf("asset must be an object, got %s", typeName(value)), path)}
	}
	var diags []Violation
	if asset["type"] != "asset" {
		diags = append(diags, errViolation("MD-008", fmt.Sprintf(`asset type must be "asset", got %v`, asset["type"]), path+".type"))
	}
	if src, ok := asset["src"].(string); !ok || src == "" {
		diags = append(diags, errViolation("MD-008", "asset src must be a non-empty string", path+".src"))
	}
	return diags
}
