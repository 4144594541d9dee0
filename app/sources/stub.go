package sources

import (
	"context"
	"log/slog"
	"time"

	"github.com/gaixen/credtech-ingest/app/config"
)

// StubSource is a placeholder adapter for integrations that are
// configured but not yet implemented (currently kofin). It participates
// in the source lifecycle and wakes on the configured interval without
// performing any I/O, so enabling the real integration later is purely
// an adapter swap.
type StubSource struct {
	name    string
	config  *config.SourceConfig
	enabled bool
}

func NewStubSource(name string, cfg *config.SourceConfig) *StubSource {
	return &StubSource{name: name, config: cfg, enabled: cfg.Enabled}
}

func (s *StubSource) Name() string { return s.name }

func (s *StubSource) Enabled() bool { return s.enabled }

func (s *StubSource) Start(ctx context.Context) error {
	if !s.enabled {
		slog.Info("Source disabled", "source", s.name)
		return nil
	}

	slog.Info("Starting stub source", "source", s.name, "interval", s.config.GetUpdateInterval())
	go s.run(ctx)
	return nil
}

func (s *StubSource) Stop(ctx context.Context) error {
	return nil
}

func (s *StubSource) run(ctx context.Context) {
	ticker := time.NewTicker(s.config.GetUpdateInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Debug("Stub source tick", "source", s.name)
		}
	}
}
