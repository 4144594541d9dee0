package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gaixen/credtech-ingest/app/model"
)

func TestFileStorageFirstWriteWins(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	ctx := context.Background()

	first := testRecord("reuters-abc", "reuters", time.Now())
	if err := store.SaveUnstructuredData(ctx, first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second := testRecord("reuters-abc", "reuters", time.Now())
	second.Title = "Updated title"
	if err := store.SaveUnstructuredData(ctx, second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "reuters", "reuters-abc_*.json"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one file, got %d", len(matches))
	}

	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var stored model.UnstructuredData
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if stored.Title != "Test title" {
		t.Errorf("expected the first write to win, got title %q", stored.Title)
	}
}

func TestFileStoragePerSourceDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	ctx := context.Background()

	if err := store.SaveUnstructuredData(ctx, testRecord("reuters-a", "reuters", time.Now())); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveUnstructuredData(ctx, testRecord("finnhub-b", "finnhub", time.Now())); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, source := range []string{"reuters", "finnhub"} {
		info, err := os.Stat(filepath.Join(dir, source))
		if err != nil {
			t.Fatalf("expected source directory %q: %v", source, err)
		}
		if !info.IsDir() {
			t.Errorf("%q is not a directory", source)
		}
	}
}

func TestFileStorageReadsNotImplemented(t *testing.T) {
	store, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}

	if _, err := store.GetUnstructuredData(context.Background(), "any"); err != ErrNotImplemented {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}

	records, err := store.ListUnstructuredData(context.Background(), Filters{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty list, got %d records", len(records))
	}
}
