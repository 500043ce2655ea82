// Package conformance checks an app bundle directory against the app
// contract. Every check runs; failures are aggregated into a Report rather
// than stopping at the first one.
package conformance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edgeopslabs/appkit/pkg/bundle"
	"github.com/edgeopslabs/appkit/pkg/metadata"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation is one failed check.
type Violation struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return fmt.Sprintf("[%s] %s: %s", v.Severity, v.Code, v.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s", v.Severity, v.Code, v.Path, v.Message)
}

type Report struct {
	Dir        string      `json:"dir"`
	AppID      string      `json:"appId,omitempty"`
	AppName    string      `json:"appName,omitempty"`
	Vendor     string      `json:"vendor,omitempty"`
	Runtime    string      `json:"runtime"`
	Violations []Violation `json:"violations"`
}

func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

func (r *Report) Errors() []Violation {
	return r.filter(SeverityError)
}

func (r *Report) Warnings() []Violation {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(severity string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == severity {
			out = append(out, v)
		}
	}
	return out
}

// Run checks the bundle in dir. It returns an error only when the bundle
// cannot be checked at all: a missing directory or a missing file.
func Run(dir string) (*Report, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("Directory not found: %s", abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("Not a directory: %s", abs)
	}
	if !fileExists(filepath.Join(abs, bundle.ManifestName)) {
		return nil, fmt.Errorf("Missing %s in directory: %s", bundle.ManifestName, abs)
	}
	if !fileExists(filepath.Join(abs, bundle.MetadataName)) {
		return nil, fmt.Errorf("Missing %s in directory: %s", bundle.MetadataName, abs)
	}

	b, err := bundle.Load(abs)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Dir:        abs,
		AppID:      b.AppID(),
		Runtime:    string(b.RuntimeType()),
		Violations: make([]Violation, 0),
	}

	a, resolveErr := bundle.Resolve(b)
	descriptor := b.Raw
	if resolveErr != nil {
		report.Violations = append(report.Violations, errViolation("AD-000", fmt.Sprintf("app cannot be resolved: %v", resolveErr), "runtime"))
	} else if b.RuntimeType() == bundle.RuntimeBuiltin {
		// Builtin apps are described by the compiled descriptor, not the manifest.
		doc, err := a.Document()
		if err != nil {
			report.Violations = append(report.Violations, errViolation("AD-000", err.Error(), ""))
		} else {
			descriptor = doc
		}
		report.Violations = append(report.Violations, checkBuiltinIdentity(b.Manifest, a)...)
		report.AppID = a.Key()
	}
	report.AppName, _ = descriptor["name"].(string)

	report.Violations = append(report.Violations, checkDescriptor(descriptor)...)
	if a != nil {
		report.Violations = append(report.Violations, checkBehaviour(a, descriptor)...)
	}
	if b.RuntimeType() == bundle.RuntimeCommand {
		report.Violations = append(report.Violations, checkDeclaredTools(b.Raw)...)
	}

	meta, rawMetadata, metaErr := metadata.Load(b.MetadataPath())
	if rawMetadata == nil && metaErr != nil {
		report.Violations = append(report.Violations, errViolation("MD-001", fmt.Sprintf("metadata is not a JSON object: %v", metaErr), bundle.MetadataName))
	}
	if meta != nil {
		report.Vendor = meta.Content.Vendor.Name
	}
	report.Violations = append(report.Violations, checkMetadata(rawMetadata)...)

	return report, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func errViolation(code, message, path string) Violation {
	return Violation{Code: code, Severity: SeverityError, Message: message, Path: path}
}

func warnViolation(code, message, path string) Violation {
	return Violation{Code: code, Severity: SeverityWarning, Message: message, Path: path}
}

// typeName names a decoded JSON value the way JSON does.
func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
