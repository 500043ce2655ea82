// Package metadata models the metadata.json sidecar shipped with every app.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
)

const FileName = "metadata.json"

type Document struct {
	Content Content `json:"content"`
}

type Content struct {
	ShortDescription string   `json:"shortDescription"`
	Vendor           Vendor   `json:"vendor"`
	Overview         Overview `json:"overview"`
	Installation     []Step   `json:"installation"`
	Resources        []any    `json:"resources"`
	LogoImage        Assets   `json:"logoImage,omitempty"`
}

type Vendor struct {
	Name string `json:"name"`
}

type Overview struct {
	Content        string `json:"content"`
	CarouselImages Assets `json:"carouselImages,omitempty"`
}

type Step struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Images      Assets `json:"images,omitempty"`
}

// Asset references a bundled file.
type Asset struct {
	Type string `json:"type"`
	Src  string `json:"src"`
}

// Assets accepts either a single asset object or a list of them.
type Assets []Asset

func (a *Assets) UnmarshalJSON(data []byte) error {
	var list []Asset
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single Asset
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("decode asset: %w", err)
	}
	*a = Assets{single}
	return nil
}

// Load reads a metadata document, returning both the typed view and the raw
// decoded JSON used for structural checks.
func Load(path string) (*Document, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode metadata: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		// The raw document is still returned so shape violations can be reported.
		return nil, raw, fmt.Errorf("decode metadata: %w", err)
	}
	return &doc, raw, nil
}
