package config

// SourceConfig represents a complete data source configuration.
type SourceConfig struct {
	Name           string   `yaml:"name"`
	Enabled        bool     `yaml:"enabled"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	BaseURL        string   `yaml:"base_url"`
	StreamURL      string   `yaml:"stream_url"`
	UpdateInterval int      `yaml:"update_interval"` // seconds
	Timeout        int      `yaml:"timeout"`         // seconds
	RequestDelay   int      `yaml:"request_delay"`   // milliseconds between requests in one batch
	Symbols        []string `yaml:"symbols"`
	Keywords       []string `yaml:"keywords"`
	Categories     []string `yaml:"categories"`
	Feeds          []string `yaml:"feeds"` // RSS/Atom feed URLs

	// APIKey is resolved from APIKeyEnv at load time, never read from YAML.
	APIKey string `yaml:"-"`
}
