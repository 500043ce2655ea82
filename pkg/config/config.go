package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type AppkitConfig struct {
	Server ServerConfig `yaml:"server"`
	Apps   AppsConfig   `yaml:"apps"`
	HTTP   HTTPConfig   `yaml:"http"`
	Policy PolicyConfig `yaml:"policy"`
}

type Config = AppkitConfig

type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	SafeMode  bool   `yaml:"safe_mode"`
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

type AppsConfig struct {
	// Dir holds installed app bundles.
	Dir       string           `yaml:"dir"`
	Instances []InstanceConfig `yaml:"instances"`
}

// InstanceConfig is one configured app instance: the app id plus the
// tenant's configuration and credentials.
type InstanceConfig struct {
	Name       string         `yaml:"name"`
	App        string         `yaml:"app"`
	Config     map[string]any `yaml:"config"`
	AuthType   string         `yaml:"auth_type"`
	AuthParams any            `yaml:"auth_params"`
}

type HTTPConfig struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type PolicyConfig struct {
	AllowInstances []string `yaml:"allow_instances"`
	DenyInstances  []string `yaml:"deny_instances"`
	AllowTools     []string `yaml:"allow_tools"`
	DenyTools      []string `yaml:"deny_tools"`
	ConfirmTools   []string `yaml:"confirm_tools"`
}

func DefaultConfig() *AppkitConfig {
	return &AppkitConfig{
		Server: ServerConfig{
			Name:      "Appkit",
			Version:   "v0.1.0",
			LogLevel:  "info",
			SafeMode:  true,
			Transport: "stdio",
			Addr:      ":8080",
		},
		Apps: AppsConfig{
			Dir:       "apps",
			Instances: []InstanceConfig{},
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 15,
			Burst:          1,
		},
	}
}

func LoadConfig(path string) (*AppkitConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppkitConfig) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "Appkit"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "v0.1.0"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Apps.Dir == "" {
		cfg.Apps.Dir = "apps"
	}
	if cfg.HTTP.TimeoutSeconds <= 0 {
		cfg.HTTP.TimeoutSeconds = 15
	}
	if cfg.HTTP.Burst <= 0 {
		cfg.HTTP.Burst = 1
	}
	for i := range cfg.Apps.Instances {
		if cfg.Apps.Instances[i].Name == "" {
			cfg.Apps.Instances[i].Name = cfg.Apps.Instances[i].App
		}
	}
}

// Validate checks that every instance names an app and that instance names
// are unique.
func (c *AppkitConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Apps.Instances))
	for i, inst := range c.Apps.Instances {
		if inst.App == "" {
			return fmt.Errorf("apps.instances[%d]: app is required", i)
		}
		if _, dup := seen[inst.Name]; dup {
			return fmt.Errorf("apps.instances[%d]: duplicate instance name %q", i, inst.Name)
		}
		seen[inst.Name] = struct{}{}
	}
	switch c.Server.Transport {
	case "stdio", "sse", "http":
	default:
		return fmt.Errorf("server.transport: unsupported transport %q", c.Server.Transport)
	}
	return nil
}
