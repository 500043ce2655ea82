package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMetadata(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeMetadata(t, `{
		"content": {
			"shortDescription": "Ping a service",
			"vendor": {"name": "EdgeOps Labs"},
			"overview": {
				"content": "Connects to a REST API.",
				"carouselImages": [{"type": "asset", "src": "carousel-1.png"}]
			},
			"installation": [
				{"title": "Create a key", "description": "Generate an API key.", "images": [{"type": "asset", "src": "step-1.png"}]}
			],
			"resources": [{"title": "Docs", "url": "https://example.com"}],
			"logoImage": {"type": "asset", "src": "logo.png"}
		}
	}`)

	doc, raw, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Content.Vendor.Name != "EdgeOps Labs" {
		t.Fatalf("unexpected vendor %q", doc.Content.Vendor.Name)
	}
	if len(doc.Content.LogoImage) != 1 || doc.Content.LogoImage[0].Src != "logo.png" {
		t.Fatalf("expected single logo asset, got %+v", doc.Content.LogoImage)
	}
	if len(doc.Content.Installation) != 1 || len(doc.Content.Installation[0].Images) != 1 {
		t.Fatalf("expected one installation step with one image")
	}
	if len(doc.Content.Overview.CarouselImages) != 1 {
		t.Fatalf("expected carousel image")
	}
	if _, ok := raw["content"].(map[string]any); !ok {
		t.Fatalf("expected raw content object")
	}
}

func TestLoadReturnsRawOnShapeMismatch(t *testing.T) {
	path := writeMetadata(t, `{"content": {"shortDescription": 12}}`)
	doc, raw, err := Load(path)
	if err == nil {
		t.Fatalf("expected decode error for wrong field type")
	}
	if doc != nil || raw == nil {
		t.Fatalf("expected raw document without typed view")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), FileName)); err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}
