package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ZupervisorConfig is the application-wide configuration, sourced from
// environment variables.
type ZupervisorConfig struct {
	ServerPort string
	PluginDir  string
}

// LoadZupervisorConfig loads configuration from environment variables.
func LoadZupervisorConfig() *ZupervisorConfig {
	port := os.Getenv("ZUPERVISOR_PORT")
	if port == "" {
		port = "8080"
	}

	pluginDir := os.Getenv("ZUPERVISOR_PLUGIN_DIR")
	if pluginDir == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			pluginDir = path.Join(homeDir, ".zupervisor", "plugins")
		}
	}

	return &ZupervisorConfig{
		ServerPort: port,
		PluginDir:  pluginDir,
	}
}

// PluginRef names one feature plugin to load. The binary is resolved as
// plugin-<name> under the plugin directory.
type PluginRef struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`

	// Version is an optional expected version prefix, checked against the
	// plugin's reported version after load.
	Version string `yaml:"version"`
}

// IsEnabled reports whether the plugin should be loaded; plugins are enabled
// unless explicitly disabled.
func (p PluginRef) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// StoreDefinition configures preloading of one named shared store.
type StoreDefinition struct {
	PreloadFile string                 `yaml:"preloadFile"`
	PreloadData map[string]interface{} `yaml:"preloadData"`
}

// ConcurrencyLimit caps the number of in-flight handler calls for one route.
type ConcurrencyLimit struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	Limit  int    `yaml:"limit"`
}

// Config is the host configuration loaded from YAML files.
type Config struct {
	Plugins []PluginRef                `yaml:"plugins"`
	Stores  map[string]StoreDefinition `yaml:"stores"`
	Limits  []ConcurrencyLimit         `yaml:"limits"`
}

// LoadConfig loads and merges all config files in the specified directory.
// Files must be named *-config.yaml or *-config.yml.
func LoadConfig(configDir string) (*Config, error) {
	merged := &Config{Stores: make(map[string]StoreDefinition)}
	found := false

	err := filepath.Walk(configDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != configDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(info.Name(), "-config.yaml") && !strings.HasSuffix(info.Name(), "-config.yml") {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}

		found = true
		merged.Plugins = append(merged.Plugins, cfg.Plugins...)
		merged.Limits = append(merged.Limits, cfg.Limits...)
		for name, def := range cfg.Stores {
			merged.Stores[name] = def
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no config files found in %s", configDir)
	}
	return merged, nil
}
