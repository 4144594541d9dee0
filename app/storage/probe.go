package storage

import (
	"log/slog"
)

// New selects a backend by probing constructors in priority order:
// file-backed sink, then SQLite, then in-memory. Each failure is logged
// and falls through, so the pipeline always gets a working backend and
// only durability degrades.
func New(dataDir, dbPath string) Storage {
	if dataDir != "" {
		fileStore, err := NewFileStorage(dataDir)
		if err == nil {
			slog.Info("Using file storage backend", "data_dir", dataDir)
			return fileStore
		}
		slog.Warn("File storage unavailable, trying sqlite", "data_dir", dataDir, "error", err)
	}

	if dbPath != "" {
		sqliteStore, err := NewSQLiteStorage(dbPath)
		if err == nil {
			slog.Info("Using sqlite storage backend", "db_path", dbPath)
			return sqliteStore
		}
		slog.Warn("SQLite storage unavailable, falling back to memory", "db_path", dbPath, "error", err)
	}

	slog.Warn("Using in-memory storage backend, data will not survive restart")
	return NewMemoryStorage()
}
