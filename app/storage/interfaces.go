package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gaixen/credtech-ingest/app/model"
)

// Storage is the single durable-write contract shared by every source
// adapter and worker. Implementations must be safe for concurrent use.
type Storage interface {
	SaveUnstructuredData(ctx context.Context, data *model.UnstructuredData) error
	GetUnstructuredData(ctx context.Context, id string) (*model.UnstructuredData, error)
	ListUnstructuredData(ctx context.Context, filters Filters) ([]*model.UnstructuredData, error)

	SaveProcessingJob(ctx context.Context, job *model.ProcessingJob) error
	GetPendingJobs(ctx context.Context, jobType string, limit int) ([]*model.ProcessingJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, result map[string]interface{}, errorMsg string) error

	SaveDataQuality(ctx context.Context, quality *model.DataQuality) error
	GetDataQualityStats(ctx context.Context, source string, since time.Time) (*QualityStats, error)

	Close() error
}

// Filters narrows ListUnstructuredData results. Zero values mean "no
// constraint".
type Filters struct {
	Source   string
	Type     string
	DateFrom *time.Time
	DateTo   *time.Time
	Tags     []string
	Limit    int
	Offset   int
}

// QualityStats is the aggregated read-only rollup per source over a time
// window, consumed by the periodic monitor and the ops API.
type QualityStats struct {
	AverageQuality      float64 `json:"average_quality"`
	AverageCompleteness float64 `json:"average_completeness"`
	AverageAccuracy     float64 `json:"average_accuracy"`
	AverageFreshness    float64 `json:"average_freshness"`
	TotalItems          int64   `json:"total_items"`
	IssueCount          int64   `json:"issue_count"`
}

var (
	// ErrNotFound is returned when a record id has no match.
	ErrNotFound = errors.New("data not found")

	// ErrNotImplemented is returned by backends that serve only as durable
	// write sinks (the file backend has no read path).
	ErrNotImplemented = errors.New("not implemented for this backend")
)
