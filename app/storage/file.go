package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gaixen/credtech-ingest/app/model"
)

// FileStorage is a durable write sink: one subdirectory per source, one
// JSON file per record. Dedup is first-write-wins keyed on the id prefix
// of the file name. The read and job bookkeeping paths are intentionally
// not implemented; downstream consumers needing queries use the relational
// backend.
type FileStorage struct {
	dataDir string
	mu      sync.Mutex
}

func NewFileStorage(dataDir string) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &FileStorage{dataDir: dataDir}, nil
}

func (fs *FileStorage) SaveUnstructuredData(ctx context.Context, data *model.UnstructuredData) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sourceDir := filepath.Join(fs.dataDir, data.Source)
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		return fmt.Errorf("failed to create source directory: %w", err)
	}

	// First write wins: any existing file whose name starts with this id
	// makes the save a no-op.
	pattern := filepath.Join(sourceDir, fmt.Sprintf("%s_*.json", data.ID))
	if matches, err := filepath.Glob(pattern); err == nil && len(matches) > 0 {
		slog.Debug("Skipping duplicate record", "source", data.Source, "id", data.ID)
		return nil
	}

	filename := fmt.Sprintf("%s_%s.json", data.ID, time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(sourceDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return nil
}

func (fs *FileStorage) GetUnstructuredData(ctx context.Context, id string) (*model.UnstructuredData, error) {
	return nil, ErrNotImplemented
}

func (fs *FileStorage) ListUnstructuredData(ctx context.Context, filters Filters) ([]*model.UnstructuredData, error) {
	return []*model.UnstructuredData{}, nil
}

func (fs *FileStorage) SaveProcessingJob(ctx context.Context, job *model.ProcessingJob) error {
	return nil
}

func (fs *FileStorage) GetPendingJobs(ctx context.Context, jobType string, limit int) ([]*model.ProcessingJob, error) {
	return []*model.ProcessingJob{}, nil
}

func (fs *FileStorage) UpdateJobStatus(ctx context.Context, jobID string, status string, result map[string]interface{}, errorMsg string) error {
	return nil
}

func (fs *FileStorage) SaveDataQuality(ctx context.Context, quality *model.DataQuality) error {
	return nil
}

func (fs *FileStorage) GetDataQualityStats(ctx context.Context, source string, since time.Time) (*QualityStats, error) {
	return &QualityStats{}, nil
}

func (fs *FileStorage) Close() error {
	return nil
}
