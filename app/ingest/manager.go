package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gaixen/credtech-ingest/app/cfg"
	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/sources"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// Manager owns the full ingestion lifecycle: it builds one adapter per
// configured source, runs the worker pool draining the shared job queue,
// and holds the cancellation context everything else derives from.
type Manager struct {
	storage         storage.Storage
	sources         map[string]sources.Source
	jobs            chan model.ProcessingJob
	quit            chan struct{}
	workerCount     int
	monitorInterval time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

func NewManager(store storage.Storage, configs map[string]*config.SourceConfig) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	appCfg := cfg.Get()

	monitorInterval := time.Duration(appCfg.MonitorInterval) * time.Second
	if monitorInterval <= 0 {
		monitorInterval = 5 * time.Minute
	}

	m := &Manager{
		storage:         store,
		sources:         make(map[string]sources.Source),
		jobs:            make(chan model.ProcessingJob, appCfg.QueueSize),
		quit:            make(chan struct{}),
		workerCount:     appCfg.WorkerCount,
		monitorInterval: monitorInterval,
		ctx:             ctx,
		cancel:          cancel,
	}

	m.initSources(configs, appCfg.UserAgent)
	return m
}

// initSources builds one adapter per configured source. Disabled sources
// still get an adapter: their Start is a no-op and the monitor reports on
// them like any other.
func (m *Manager) initSources(configs map[string]*config.SourceConfig, userAgent string) {
	for name, sc := range configs {
		switch name {
		case "finnhub":
			m.sources[name] = sources.NewFinnhubSource(m.storage, m, sc, userAgent)
		case "newsapi":
			m.sources[name] = sources.NewNewsAPISource(m.storage, m, sc, userAgent)
		case "yahoo_finance":
			m.sources[name] = sources.NewYahooSource(m.storage, m, sc, userAgent)
		case "reuters", "bloomberg", "marketwatch":
			m.sources[name] = sources.NewRSSSource(name, m.storage, m, sc, userAgent,
				[]string{name, "financial_news"})
		case "federal_reserve":
			m.sources[name] = sources.NewRSSSource(name, m.storage, m, sc, userAgent,
				[]string{name, "central_bank", "monetary_policy"})
		case "kofin":
			m.sources[name] = sources.NewStubSource(name, sc)
		default:
			slog.Warn("No adapter for configured source", "source", name)
		}
	}
}

// Sources returns the adapters keyed by source name.
func (m *Manager) Sources() map[string]sources.Source {
	return m.sources
}

// Start launches workers, enabled sources and the monitor, then returns.
// Sources run until the manager's context is cancelled.
func (m *Manager) Start() error {
	slog.Info("Starting ingestion manager", "sources", len(m.sources), "workers", m.workerCount, "queue_size", cap(m.jobs))

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	for name, source := range m.sources {
		if !source.Enabled() {
			slog.Info("Source disabled", "source", name)
			continue
		}

		slog.Info("Starting source", "source", name)
		if err := source.Start(m.ctx); err != nil {
			slog.Error("Failed to start source", "source", name, "error", err)
		}
	}

	m.wg.Add(1)
	go m.monitor()

	return nil
}

// Stop cancels the shared context, stops every enabled source and waits
// for all goroutines up to the deadline carried by ctx. On overrun the
// remaining goroutines are abandoned and ctx.Err() is returned.
func (m *Manager) Stop(ctx context.Context) error {
	slog.Info("Stopping ingestion manager")

	m.cancel()

	for name, source := range m.sources {
		if !source.Enabled() {
			continue
		}
		if err := source.Stop(ctx); err != nil {
			slog.Warn("Failed to stop source", "source", name, "error", err)
		}
	}

	close(m.quit)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Ingestion manager stopped")
		return nil
	case <-ctx.Done():
		slog.Warn("Shutdown deadline reached, abandoning remaining goroutines")
		return ctx.Err()
	}
}

// Submit persists the job as pending and enqueues it for the worker
// pool. A full queue rejects the job with an error; the persisted row
// remains for offline pickup.
func (m *Manager) Submit(job model.ProcessingJob) error {
	if err := m.storage.SaveProcessingJob(m.ctx, &job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}

	select {
	case m.jobs <- job:
		return nil
	default:
		return fmt.Errorf("job queue full (capacity %d)", cap(m.jobs))
	}
}

// monitor logs a per-source quality rollup over the trailing 24h window
// on every interval. Purely observational.
func (m *Manager) monitor() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Manager) logStats() {
	since := time.Now().Add(-24 * time.Hour)

	for name := range m.sources {
		stats, err := m.storage.GetDataQualityStats(m.ctx, name, since)
		if err != nil {
			slog.Warn("Failed to get quality stats", "source", name, "error", err)
			continue
		}

		slog.Info("Source quality rollup",
			"source", name,
			"avg_quality", stats.AverageQuality,
			"items", stats.TotalItems,
			"issues", stats.IssueCount)
	}
}
