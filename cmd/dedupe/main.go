// Command dedupe collapses duplicate record files left in the file
// storage backend's data directory. Files are grouped per source
// directory by the record id prefix of their name; the lexicographically
// first file of each group (the earliest write) is kept and the rest are
// removed. This is an offline maintenance operation, never part of the
// live pipeline.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jessevdk/go-flags"
)

type options struct {
	DataDir string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory used by the file storage backend"`
	DryRun  bool   `long:"dry-run" description:"Report duplicates without removing anything"`
}

func main() {
	var opts options

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	removed, err := dedupe(opts.DataDir, opts.DryRun)
	if err != nil {
		slog.Error("Cleanup failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Cleanup complete", "removed", removed, "dry_run", opts.DryRun)
}

func dedupe(dataDir string, dryRun bool) (int, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read data directory: %w", err)
	}

	totalRemoved := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		removed, err := dedupeSourceDir(filepath.Join(dataDir, entry.Name()), dryRun)
		if err != nil {
			return totalRemoved, err
		}
		if removed > 0 {
			slog.Info("Removed duplicates", "source", entry.Name(), "removed", removed)
		}
		totalRemoved += removed
	}

	return totalRemoved, nil
}

func dedupeSourceDir(sourceDir string, dryRun bool) (int, error) {
	files, err := os.ReadDir(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read source directory: %w", err)
	}

	filesByID := make(map[string][]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		id, ok := idFromFilename(file.Name())
		if !ok {
			continue
		}
		filesByID[id] = append(filesByID[id], filepath.Join(sourceDir, file.Name()))
	}

	removed := 0
	for id, paths := range filesByID {
		if len(paths) < 2 {
			continue
		}

		// The earliest write sorts first; first-write-wins mirrors the
		// backend's save semantics.
		sort.Strings(paths)

		slog.Debug("Found duplicates", "id", id, "count", len(paths)-1)

		for _, path := range paths[1:] {
			if dryRun {
				removed++
				continue
			}
			if err := os.Remove(path); err != nil {
				slog.Warn("Failed to remove duplicate", "path", path, "error", err)
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// idFromFilename recovers the record id from a backend file name of the
// form <id>_<yyyymmdd>_<hhmmss>.json. Ids may themselves contain
// underscores, so the timestamp is stripped from the right.
func idFromFilename(name string) (string, bool) {
	base := strings.TrimSuffix(name, ".json")
	if base == name {
		return "", false
	}

	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return "", false
	}

	return strings.Join(parts[:len(parts)-2], "_"), true
}
