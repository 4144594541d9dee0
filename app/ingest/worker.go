package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/sources"
)

// summaryWordLimit caps the extractive summary produced by the
// summarization handler.
const summaryWordLimit = 50

func (m *Manager) worker(id int) {
	defer m.wg.Done()

	slog.Debug("Worker started", "worker", id)

	for {
		select {
		case job := <-m.jobs:
			m.processJob(id, job)
		case <-m.quit:
			slog.Debug("Worker stopping", "worker", id)
			return
		case <-m.ctx.Done():
			slog.Debug("Worker stopping on cancellation", "worker", id)
			return
		}
	}
}

// processJob dispatches on the job type. Unknown types are logged and
// dropped, never requeued.
func (m *Manager) processJob(workerID int, job model.ProcessingJob) {
	slog.Debug("Processing job", "worker", workerID, "job_type", job.JobType, "data_id", job.DataID)

	switch job.JobType {
	case model.JobTypeSentiment:
		// Sentiment scoring runs out of process. The persisted row stays
		// pending until the external worker claims it.
	case model.JobTypeQualityCheck:
		m.runQualityCheck(job)
	case model.JobTypeEntityExtract:
		m.runEntityExtraction(job)
	case model.JobTypeSummarization:
		m.runSummarization(job)
	default:
		slog.Warn("Unknown job type, dropping", "job_type", job.JobType, "job_id", job.ID)
	}
}

func (m *Manager) markProcessing(job model.ProcessingJob) {
	if err := m.storage.UpdateJobStatus(m.ctx, job.ID, model.JobStatusProcessing, nil, ""); err != nil {
		slog.Warn("Failed to mark job processing", "job_id", job.ID, "error", err)
	}
}

func (m *Manager) finishJob(job model.ProcessingJob, result map[string]interface{}, jobErr error) {
	status := model.JobStatusCompleted
	errMsg := ""
	if jobErr != nil {
		status = model.JobStatusFailed
		errMsg = jobErr.Error()
		slog.Warn("Job failed", "job_type", job.JobType, "data_id", job.DataID, "error", jobErr)
	}

	if err := m.storage.UpdateJobStatus(m.ctx, job.ID, status, result, errMsg); err != nil {
		slog.Warn("Failed to update job status", "job_id", job.ID, "status", status, "error", err)
	}
}

// runQualityCheck scores the referenced record on completeness, accuracy
// and freshness, persists the DataQuality row and completes the job with
// the scores in its result.
func (m *Manager) runQualityCheck(job model.ProcessingJob) {
	m.markProcessing(job)

	data, err := m.storage.GetUnstructuredData(m.ctx, job.DataID)
	if err != nil {
		m.finishJob(job, nil, fmt.Errorf("failed to load record: %w", err))
		return
	}

	quality := assessQuality(data)
	if err := m.storage.SaveDataQuality(m.ctx, quality); err != nil {
		m.finishJob(job, nil, fmt.Errorf("failed to save quality row: %w", err))
		return
	}

	m.finishJob(job, map[string]interface{}{
		"quality_score":      quality.QualityScore,
		"completeness_score": quality.CompletenessScore,
		"accuracy_score":     quality.AccuracyScore,
		"freshness_score":    quality.FreshnessScore,
		"issues":             quality.Issues,
	}, nil)
}

// assessQuality computes the heuristic quality scores for one record.
// Completeness counts populated core fields, accuracy penalizes missing
// provenance, freshness decays with the publish-to-ingest gap.
func assessQuality(data *model.UnstructuredData) *model.DataQuality {
	issues := []string{}

	filled := 0
	checks := []struct {
		ok    bool
		issue string
	}{
		{data.Title != "", "missing title"},
		{data.Content != "", "missing content"},
		{data.Author != "", "missing author"},
		{!data.PublishedAt.IsZero(), "missing published_at"},
	}
	for _, c := range checks {
		if c.ok {
			filled++
		} else {
			issues = append(issues, c.issue)
		}
	}
	completeness := float64(filled) / float64(len(checks))

	accuracy := 1.0
	if data.URL == "" && data.Type == model.TypeNews {
		accuracy -= 0.3
		issues = append(issues, "missing url")
	}
	if len(data.Entities) == 0 {
		accuracy -= 0.2
	}
	if accuracy < 0 {
		accuracy = 0
	}

	freshness := 1.0
	if !data.PublishedAt.IsZero() {
		lag := data.IngestedAt.Sub(data.PublishedAt)
		switch {
		case lag > 7*24*time.Hour:
			freshness = 0.2
			issues = append(issues, "stale item")
		case lag > 24*time.Hour:
			freshness = 0.6
		}
	}

	return &model.DataQuality{
		ID:                uuid.NewString(),
		DataID:            data.ID,
		Source:            data.Source,
		QualityScore:      (completeness + accuracy + freshness) / 3,
		CompletenessScore: completeness,
		AccuracyScore:     accuracy,
		FreshnessScore:    freshness,
		Issues:            issues,
		CheckedAt:         time.Now().UTC(),
	}
}

// runEntityExtraction re-runs the heuristic extractor over the stored
// record and persists the refreshed entities and tags.
func (m *Manager) runEntityExtraction(job model.ProcessingJob) {
	m.markProcessing(job)

	data, err := m.storage.GetUnstructuredData(m.ctx, job.DataID)
	if err != nil {
		m.finishJob(job, nil, fmt.Errorf("failed to load record: %w", err))
		return
	}

	text := data.Title + " " + data.Content
	data.Entities = sources.ExtractEntities(text)
	data.Tags = mergeTags(data.Tags, sources.GenerateTags(text))

	if err := m.storage.SaveUnstructuredData(m.ctx, data); err != nil {
		m.finishJob(job, nil, fmt.Errorf("failed to save record: %w", err))
		return
	}

	m.finishJob(job, map[string]interface{}{"entity_count": len(data.Entities)}, nil)
}

// runSummarization produces a naive extractive summary and completes the
// job with it. The record itself is not mutated.
func (m *Manager) runSummarization(job model.ProcessingJob) {
	m.markProcessing(job)

	data, err := m.storage.GetUnstructuredData(m.ctx, job.DataID)
	if err != nil {
		m.finishJob(job, nil, fmt.Errorf("failed to load record: %w", err))
		return
	}

	words := strings.Fields(data.Content)
	summary := data.Content
	if len(words) > summaryWordLimit {
		summary = strings.Join(words[:summaryWordLimit], " ") + "..."
	}

	m.finishJob(job, map[string]interface{}{"summary": summary}, nil)
}

func mergeTags(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, tag := range existing {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	for _, tag := range extra {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}
