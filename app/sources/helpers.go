package sources

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// newsID derives the stable content identifier for a news item: the same
// logical item re-fetched from the same source always hashes to the same
// id, which makes the storage upsert idempotent.
func newsID(source, identifier string) string {
	hash := md5.Sum([]byte(identifier))
	return fmt.Sprintf("%s-%x", source, hash[:8])
}

// saveRecord writes one record through the configured backend and, for
// news records, requests downstream enrichment. Failures are logged and
// swallowed: a dropped record never halts the adapter's loop.
func saveRecord(ctx context.Context, store storage.Storage, sink JobSink, data *model.UnstructuredData) {
	if err := store.SaveUnstructuredData(ctx, data); err != nil {
		slog.Error("Failed to save record", "source", data.Source, "id", data.ID, "error", err)
		return
	}

	if sink == nil || data.Type != model.TypeNews {
		return
	}

	now := time.Now().UTC()
	jobs := []model.ProcessingJob{
		{
			ID:        uuid.NewString(),
			DataID:    data.ID,
			JobType:   model.JobTypeSentiment,
			Status:    model.JobStatusPending,
			CreatedAt: now,
			Priority:  1,
		},
		{
			ID:        uuid.NewString(),
			DataID:    data.ID,
			JobType:   model.JobTypeQualityCheck,
			Status:    model.JobStatusPending,
			CreatedAt: now,
		},
	}

	for _, job := range jobs {
		if err := sink.Submit(job); err != nil {
			slog.Warn("Failed to submit job", "source", data.Source, "job_type", job.JobType, "error", err)
		}
	}
}
