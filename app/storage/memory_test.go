package storage

import (
	"context"
	"testing"
	"time"

	"github.com/gaixen/credtech-ingest/app/model"
)

func testRecord(id, source string, publishedAt time.Time) *model.UnstructuredData {
	return &model.UnstructuredData{
		ID:          id,
		Source:      source,
		Type:        model.TypeNews,
		Title:       "Test title",
		Content:     "Test content",
		URL:         "https://example.com/article",
		PublishedAt: publishedAt,
		IngestedAt:  time.Now().UTC(),
		Tags:        []string{"financial_news"},
	}
}

func TestMemoryStorageSaveOverwrites(t *testing.T) {
	store := NewMemoryStorage()
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

	got, err := store.GetUnstructuredData(ctx, "reuters-abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "Updated title" {
		t.Errorf("expected most recent save to win, got title %q", got.Title)
	}

	records, err := store.ListUnstructuredData(ctx, Filters{Source: "reuters"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected exactly one record after duplicate saves, got %d", len(records))
	}
}

func TestMemoryStorageGetNotFound(t *testing.T) {
	store := NewMemoryStorage()

	_, err := store.GetUnstructuredData(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorageListFilters(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	old := testRecord("reuters-old", "reuters", base.Add(-48*time.Hour))
	recent := testRecord("reuters-new", "reuters", base)
	recent.Tags = []string{"financial_news", "credit_rating"}
	other := testRecord("finnhub-x", "finnhub", base)
	other.Type = model.TypeMarketData

	for _, r := range []*model.UnstructuredData{old, recent, other} {
		if err := store.SaveUnstructuredData(ctx, r); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	tests := []struct {
		name    string
		filters Filters
		wantIDs []string
	}{
		{"by source", Filters{Source: "finnhub"}, []string{"finnhub-x"}},
		{"by type", Filters{Type: model.TypeMarketData}, []string{"finnhub-x"}},
		{"by tag", Filters{Tags: []string{"credit_rating"}}, []string{"reuters-new"}},
		{"by date from", Filters{Source: "reuters", DateFrom: &base}, []string{"reuters-new"}},
		{"limit", Filters{Source: "reuters", Limit: 1}, []string{"reuters-new"}},
		{"offset", Filters{Source: "reuters", Offset: 1}, []string{"reuters-old"}},
		{"offset past end", Filters{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.ListUnstructuredData(ctx, tt.filters)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(records) != len(tt.wantIDs) {
				t.Fatalf("expected %d records, got %d", len(tt.wantIDs), len(records))
			}
			for i, want := range tt.wantIDs {
				if records[i].ID != want {
					t.Errorf("record %d: expected id %q, got %q", i, want, records[i].ID)
				}
			}
		})
	}
}

func TestMemoryStorageJobTransitions(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	job := &model.ProcessingJob{
		ID:        "job-1",
		DataID:    "reuters-abc",
		JobType:   model.JobTypeQualityCheck,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveProcessingJob(ctx, job); err != nil {
		t.Fatalf("save job failed: %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "job-1", model.JobStatusProcessing, nil, ""); err != nil {
		t.Fatalf("processing update failed: %v", err)
	}
	if err := store.UpdateJobStatus(ctx, "job-1", model.JobStatusFailed, nil, "boom"); err != nil {
		t.Fatalf("failed update failed: %v", err)
	}

	// Failed jobs are no longer pending and carry an incremented retry count.
	pending, err := store.GetPendingJobs(ctx, model.JobTypeQualityCheck, 10)
	if err != nil {
		t.Fatalf("get pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending jobs after failure, got %d", len(pending))
	}

	stored := store.jobs["job-1"]
	if stored.RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", stored.RetryCount)
	}
	if stored.StartedAt == nil {
		t.Error("expected started_at to be set by the processing transition")
	}
	if stored.Error != "boom" {
		t.Errorf("expected error message preserved, got %q", stored.Error)
	}
}

func TestMemoryStorageUnknownJobStatusRejected(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	job := &model.ProcessingJob{
		ID:        "job-1",
		JobType:   model.JobTypeSentiment,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveProcessingJob(ctx, job); err != nil {
		t.Fatalf("save job failed: %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "job-1", "paused", nil, ""); err == nil {
		t.Fatal("expected an error for an unknown status")
	}

	stored := store.jobs["job-1"]
	if stored.Status != model.JobStatusPending || stored.RetryCount != 0 {
		t.Errorf("rejected update must not touch the job, got status %q retry_count %d", stored.Status, stored.RetryCount)
	}
}

func TestMemoryStorageGetPendingJobsOrder(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	base := time.Now().UTC()
	jobs := []*model.ProcessingJob{
		{ID: "low-old", JobType: model.JobTypeSentiment, Status: model.JobStatusPending, Priority: 0, CreatedAt: base},
		{ID: "high", JobType: model.JobTypeSentiment, Status: model.JobStatusPending, Priority: 2, CreatedAt: base.Add(time.Minute)},
		{ID: "low-new", JobType: model.JobTypeSentiment, Status: model.JobStatusPending, Priority: 0, CreatedAt: base.Add(time.Hour)},
	}
	for _, job := range jobs {
		if err := store.SaveProcessingJob(ctx, job); err != nil {
			t.Fatalf("save job failed: %v", err)
		}
	}

	pending, err := store.GetPendingJobs(ctx, model.JobTypeSentiment, 10)
	if err != nil {
		t.Fatalf("get pending failed: %v", err)
	}

	wantOrder := []string{"high", "low-old", "low-new"}
	if len(pending) != len(wantOrder) {
		t.Fatalf("expected %d jobs, got %d", len(wantOrder), len(pending))
	}
	for i, want := range wantOrder {
		if pending[i].ID != want {
			t.Errorf("position %d: expected %q, got %q", i, want, pending[i].ID)
		}
	}
}

func TestMemoryStorageQualityStatsSynthetic(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	if err := store.SaveUnstructuredData(ctx, testRecord("a", "reuters", time.Now())); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stats, err := store.GetDataQualityStats(ctx, "reuters", time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalItems != 1 {
		t.Errorf("expected total items 1, got %d", stats.TotalItems)
	}
	if stats.AverageQuality == 0 {
		t.Error("expected placeholder quality score, got zero")
	}
}

func TestMemoryStorageDefensiveCopies(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	original := testRecord("reuters-abc", "reuters", time.Now())
	if err := store.SaveUnstructuredData(ctx, original); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	original.Title = "mutated after save"

	got, err := store.GetUnstructuredData(ctx, "reuters-abc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "Test title" {
		t.Errorf("stored record was mutated through the caller's pointer: %q", got.Title)
	}
}
