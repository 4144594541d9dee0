package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath  string `long:"db-path" env:"DB_PATH" default:"./credtech.db" description:"SQLite database file path"`
	DataDir string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for the file storage backend"`

	// Application configuration
	SourcesDir      string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing per-source configuration files"`
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"10" description:"Number of processing workers"`
	QueueSize       int    `long:"queue-size" env:"QUEUE_SIZE" default:"1000" description:"Bounded processing job queue capacity"`
	MonitorInterval int    `long:"monitor-interval" env:"MONITOR_INTERVAL" default:"300" description:"Quality stats monitor interval in seconds"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"CredTech-Ingest/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		DataDir:         raw.DataDir,
		SourcesDir:      raw.SourcesDir,
		Port:            raw.Port,
		WorkerCount:     raw.WorkerCount,
		QueueSize:       raw.QueueSize,
		MonitorInterval: raw.MonitorInterval,
		APIAccessKey:    raw.APIAccessKey,
		UserAgent:       raw.UserAgent,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}
