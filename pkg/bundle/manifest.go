package bundle

import (
	"github.com/edgeopslabs/appkit/pkg/apps/command"
	"github.com/edgeopslabs/appkit/pkg/metadata"
)

const (
	ManifestName = "app.yaml"
	MetadataName = metadata.FileName
)

type RuntimeType string

const (
	// RuntimeBuiltin binds the bundle to an app compiled into the binary.
	RuntimeBuiltin RuntimeType = "builtin"
	// RuntimeCommand runs the bundle's tools through an external executable.
	RuntimeCommand RuntimeType = "command"
)

// Manifest holds the parts of app.yaml that select behaviour. Descriptor
// fields are kept in the raw document and decoded on Resolve.
type Manifest struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Runtime Runtime            `yaml:"runtime"`
	Tools   []command.ToolDecl `yaml:"tools"`
}

type Runtime struct {
	Type RuntimeType `yaml:"type"`
	// App names the compiled-in app for builtin runtimes; defaults to the manifest id.
	App string `yaml:"app"`

	command.Runtime `yaml:",inline"`
}
