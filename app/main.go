package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaixen/credtech-ingest/app/api"
	"github.com/gaixen/credtech-ingest/app/cfg"
	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/ingest"
	"github.com/gaixen/credtech-ingest/app/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown.
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting credtech-ingest", "version", appCfg.Version)

	configs, err := config.NewLoader(appCfg.SourcesDir).LoadAll()
	if err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "sources", len(configs))

	store := storage.New(appCfg.DataDir, appCfg.DBPath)
	defer store.Close()

	manager := ingest.NewManager(store, configs)
	if err := manager.Start(); err != nil {
		slog.Error("Failed to start ingestion manager", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, manager.Sources())
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	if err := manager.Stop(shutdownCtx); err != nil {
		slog.Warn("Ingestion manager shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
