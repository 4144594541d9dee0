package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of data source configurations.
// Built-in defaults cover every known source; YAML files in the sources
// directory overlay them field by field.
type Loader struct {
	sourcesDir string
}

func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll returns the effective configuration for every known source.
func (l *Loader) LoadAll() (map[string]*SourceConfig, error) {
	configs := defaults()

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		if err := l.overlayFile(configs, file); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		slog.Debug("Loaded source configuration", "file", file)
	}

	for name, config := range configs {
		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config for source %q: %w", name, err)
		}
		l.resolveAPIKey(config)
	}

	return configs, nil
}

// overlayFile applies one YAML file on top of the matching built-in default.
// Unset fields keep their default values because the file is unmarshalled
// directly into a copy of the default config.
func (l *Loader) overlayFile(configs map[string]*SourceConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	name := sourceNameFor(data, path)
	base, ok := configs[name]
	if !ok {
		return fmt.Errorf("unknown source %q", name)
	}

	merged := *base
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	merged.Name = name

	configs[name] = &merged
	return nil
}

// sourceNameFor prefers the explicit name field, falling back to the
// file name without extension.
func sourceNameFor(data []byte, path string) string {
	var probe struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Name != "" {
		return probe.Name
	}

	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *Loader) validate(config *SourceConfig) error {
	if config.UpdateInterval < 0 {
		return fmt.Errorf("update interval must be non-negative")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if config.RequestDelay < 0 {
		return fmt.Errorf("request delay must be non-negative")
	}
	return nil
}

// resolveAPIKey reads the credential from the configured environment
// variable. A source that requires a key but has none available is forced
// off regardless of its enabled flag.
func (l *Loader) resolveAPIKey(config *SourceConfig) {
	if config.APIKeyEnv == "" {
		return
	}

	config.APIKey = os.Getenv(config.APIKeyEnv)
	if config.APIKey == "" && config.Enabled {
		slog.Warn("Source disabled, credential not set", "source", config.Name, "env", config.APIKeyEnv)
		config.Enabled = false
	}
}
