// Package bundle loads app bundles: a directory holding an app.yaml
// descriptor and a metadata.json sidecar.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/apps/command"
	"github.com/edgeopslabs/appkit/pkg/registry"
)

type Bundle struct {
	Dir      string
	Manifest Manifest
	// Raw is the manifest decoded as generic JSON values.
	Raw map[string]any
}

func (b *Bundle) ManifestPath() string {
	return filepath.Join(b.Dir, ManifestName)
}

func (b *Bundle) MetadataPath() string {
	return filepath.Join(b.Dir, MetadataName)
}

// RuntimeType returns the declared runtime, defaulting to builtin.
func (b *Bundle) RuntimeType() RuntimeType {
	if b.Manifest.Runtime.Type == "" {
		return RuntimeBuiltin
	}
	return b.Manifest.Runtime.Type
}

// AppID is the id the bundle's behaviour is bound to.
func (b *Bundle) AppID() string {
	if b.Manifest.Runtime.App != "" {
		return b.Manifest.Runtime.App
	}
	if b.Manifest.ID != "" {
		return b.Manifest.ID
	}
	return app.NormalizeID(b.Manifest.Name)
}

// Load reads dir/app.yaml. Only YAML syntax and the runtime section are
// checked here; descriptor content is left to Resolve and the conformance harness.
func Load(dir string) (*Bundle, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	raw, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: manifest must be a mapping", path)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	switch manifest.Runtime.Type {
	case "", RuntimeBuiltin, RuntimeCommand:
	default:
		return nil, fmt.Errorf("%s: unknown runtime type %q", path, manifest.Runtime.Type)
	}

	return &Bundle{Dir: dir, Manifest: manifest, Raw: obj}, nil
}

// Resolve binds a bundle to its behaviour.
func Resolve(b *Bundle) (*app.App, error) {
	switch b.RuntimeType() {
	case RuntimeBuiltin:
		a, ok := registry.Lookup(b.AppID())
		if !ok {
			return nil, fmt.Errorf("app %q is not compiled into this binary", b.AppID())
		}
		return a, nil
	case RuntimeCommand:
		desc, err := b.Descriptor()
		if err != nil {
			return nil, err
		}
		return command.New(desc, b.Dir, b.Manifest.Runtime.Runtime, b.Manifest.Tools), nil
	default:
		return nil, fmt.Errorf("unknown runtime type %q", b.RuntimeType())
	}
}

// Descriptor decodes the descriptor fields of the manifest. Schemas must compile.
func (b *Bundle) Descriptor() (app.Descriptor, error) {
	data, err := json.Marshal(b.Raw)
	if err != nil {
		return app.Descriptor{}, fmt.Errorf("encode manifest: %w", err)
	}
	var desc app.Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return app.Descriptor{}, fmt.Errorf("%s: invalid descriptor: %w", b.ManifestPath(), err)
	}
	if desc.ID == "" {
		desc.ID = app.NormalizeID(desc.Name)
	}
	return desc, nil
}

// LoadAll loads every bundle directly under dir, ordered by directory name.
// Subdirectories without an app.yaml are skipped.
func LoadAll(dir string) ([]*Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var bundles []*Bundle
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		b, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// normalize converts YAML-decoded values into the shapes encoding/json
// produces, so numbers become float64 and maps have string keys.
func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
