package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gaixen/credtech-ingest/app/model"
)

// MemoryStorage is the last resort of the probe chain: a concurrent map
// guarded by a read/write lock. Data does not survive a restart and
// quality stats are synthetic placeholders.
type MemoryStorage struct {
	mu      sync.RWMutex
	data    map[string]*model.UnstructuredData
	jobs    map[string]*model.ProcessingJob
	quality []*model.DataQuality
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string]*model.UnstructuredData),
		jobs: make(map[string]*model.ProcessingJob),
	}
}

func (s *MemoryStorage) SaveUnstructuredData(ctx context.Context, data *model.UnstructuredData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *data
	s.data[data.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetUnstructuredData(ctx context.Context, id string) (*model.UnstructuredData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *data
	return &copied, nil
}

func (s *MemoryStorage) ListUnstructuredData(ctx context.Context, filters Filters) ([]*model.UnstructuredData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.UnstructuredData
	for _, data := range s.data {
		if !matchesFilters(data, filters) {
			continue
		}
		copied := *data
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PublishedAt.After(result[j].PublishedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return []*model.UnstructuredData{}, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}

	return result, nil
}

func matchesFilters(data *model.UnstructuredData, filters Filters) bool {
	if filters.Source != "" && data.Source != filters.Source {
		return false
	}
	if filters.Type != "" && data.Type != filters.Type {
		return false
	}
	if filters.DateFrom != nil && data.PublishedAt.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && data.PublishedAt.After(*filters.DateTo) {
		return false
	}
	for _, want := range filters.Tags {
		found := false
		for _, tag := range data.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *MemoryStorage) SaveProcessingJob(ctx context.Context, job *model.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetPendingJobs(ctx context.Context, jobType string, limit int) ([]*model.ProcessingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*model.ProcessingJob
	for _, job := range s.jobs {
		if job.Status != model.JobStatusPending || job.JobType != jobType {
			continue
		}
		copied := *job
		jobs = append(jobs, &copied)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority > jobs[j].Priority
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStorage) UpdateJobStatus(ctx context.Context, jobID string, status string, result map[string]interface{}, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	switch status {
	case model.JobStatusProcessing:
		job.StartedAt = &now
	case model.JobStatusCompleted:
		job.CompletedAt = &now
		job.Result = result
		job.Error = errorMsg
	case model.JobStatusFailed:
		job.Error = errorMsg
		job.RetryCount++
	default:
		return fmt.Errorf("unknown job status %q", status)
	}
	job.Status = status
	return nil
}

func (s *MemoryStorage) SaveDataQuality(ctx context.Context, quality *model.DataQuality) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *quality
	s.quality = append(s.quality, &copied)
	return nil
}

// GetDataQualityStats returns synthetic placeholder scores; the memory
// backend is for degraded operation only and does not aggregate.
func (s *MemoryStorage) GetDataQualityStats(ctx context.Context, source string, since time.Time) (*QualityStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &QualityStats{
		AverageQuality:      0.8,
		AverageCompleteness: 0.9,
		AverageAccuracy:     0.85,
		AverageFreshness:    0.95,
		TotalItems:          int64(len(s.data)),
		IssueCount:          0,
	}, nil
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*model.UnstructuredData)
	s.jobs = make(map[string]*model.ProcessingJob)
	s.quality = nil
	return nil
}
