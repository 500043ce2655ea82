package policy

import (
	"path"
	"strings"

	"github.com/edgeopslabs/appkit/pkg/config"
)

type Decision int

const (
	Allow Decision = iota
	Deny
	Confirm
)

func (d Decision) String() string {
	switch d {
	case Deny:
		return "denied"
	case Confirm:
		return "confirm"
	default:
		return "allowed"
	}
}

type Policy struct {
	cfg      config.PolicyConfig
	safeMode bool
}

func New(cfg config.PolicyConfig, safeMode bool) *Policy {
	return &Policy{cfg: cfg, safeMode: safeMode}
}

// Evaluate decides whether a tool of an app instance may run. Tools that
// declare themselves read-only are exempt from the safe mode keyword check.
func (p *Policy) Evaluate(instance, tool string, readOnly bool) Decision {
	if p.safeMode && !readOnly && isSensitiveTool(tool) {
		return Deny
	}

	if matchesAny(p.cfg.DenyInstances, instance) || matchesAnyTool(p.cfg.DenyTools, instance, tool) {
		return Deny
	}

	if hasAllowList(p.cfg) && !matchesAny(p.cfg.AllowInstances, instance) && !matchesAnyTool(p.cfg.AllowTools, instance, tool) {
		return Deny
	}

	if matchesAnyTool(p.cfg.ConfirmTools, instance, tool) {
		return Confirm
	}

	return Allow
}

func hasAllowList(cfg config.PolicyConfig) bool {
	return len(cfg.AllowInstances) > 0 || len(cfg.AllowTools) > 0
}

func matchesAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if matched, _ := path.Match(pattern, value); matched {
			return true
		}
	}
	return false
}

func matchesAnyTool(patterns []string, instance, tool string) bool {
	qualified := instance + "/" + tool
	for _, pattern := range patterns {
		if matched, _ := path.Match(pattern, tool); matched {
			return true
		}
		if matched, _ := path.Match(pattern, qualified); matched {
			return true
		}
	}
	return false
}

func isSensitiveTool(tool string) bool {
	lower := strings.ToLower(tool)
	sensitive := []string{"delete", "update", "scale", "write", "create", "apply", "patch", "send", "remove"}
	for _, keyword := range sensitive {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
