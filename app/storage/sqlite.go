package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gaixen/credtech-ingest/app/model"
)

// SQLiteStorage implements the full Storage contract against a local
// SQLite database. Saves are true upserts keyed by id; conflict resolution
// overwrites the mutable fields and bumps updated_at.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (or creates) the database at path and provisions
// the schema. Open or first-query failures are returned so the probe chain
// can fall through to the next backend.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db, path: path}, nil
}

func (s *SQLiteStorage) SaveUnstructuredData(ctx context.Context, data *model.UnstructuredData) error {
	metadataJSON, err := marshalJSONObject(data.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tagsJSON, err := marshalJSONArray(data.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	entitiesJSON, err := json.Marshal(data.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}
	if data.Entities == nil {
		entitiesJSON = []byte("[]")
	}

	var sentimentJSON interface{}
	if data.Sentiment != nil {
		raw, err := json.Marshal(data.Sentiment)
		if err != nil {
			return fmt.Errorf("failed to marshal sentiment: %w", err)
		}
		sentimentJSON = string(raw)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO unstructured_data (
			id, source, type, title, content, url, author,
			published_at, ingested_at, metadata, tags, entities,
			sentiment, processed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			type = excluded.type,
			title = excluded.title,
			content = excluded.content,
			url = excluded.url,
			author = excluded.author,
			published_at = excluded.published_at,
			metadata = excluded.metadata,
			tags = excluded.tags,
			entities = excluded.entities,
			sentiment = excluded.sentiment,
			processed_at = excluded.processed_at,
			updated_at = excluded.updated_at
	`, data.ID, data.Source, data.Type, data.Title, data.Content, data.URL, data.Author,
		formatTime(data.PublishedAt), formatTime(data.IngestedAt), metadataJSON, tagsJSON,
		string(entitiesJSON), sentimentJSON, nullableTime(data.ProcessedAt), now, now)

	if err != nil {
		return fmt.Errorf("failed to save unstructured data: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) GetUnstructuredData(ctx context.Context, id string) (*model.UnstructuredData, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, type, title, content, url, author,
		       published_at, ingested_at, metadata, tags, entities,
		       sentiment, processed_at
		FROM unstructured_data
		WHERE id = ?
	`, id)

	data, err := scanUnstructuredData(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unstructured data: %w", err)
	}

	return data, nil
}

func (s *SQLiteStorage) ListUnstructuredData(ctx context.Context, filters Filters) ([]*model.UnstructuredData, error) {
	query := `
		SELECT id, source, type, title, content, url, author,
		       published_at, ingested_at, metadata, tags, entities,
		       sentiment, processed_at
		FROM unstructured_data
		WHERE 1=1
	`
	var args []interface{}

	if filters.Source != "" {
		query += " AND source = ?"
		args = append(args, filters.Source)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}
	if filters.DateFrom != nil {
		query += " AND published_at >= ?"
		args = append(args, formatTime(*filters.DateFrom))
	}
	if filters.DateTo != nil {
		query += " AND published_at <= ?"
		args = append(args, formatTime(*filters.DateTo))
	}
	for range filters.Tags {
		query += " AND EXISTS (SELECT 1 FROM json_each(unstructured_data.tags) WHERE json_each.value = ?)"
	}
	for _, tag := range filters.Tags {
		args = append(args, tag)
	}

	query += " ORDER BY published_at DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	} else if filters.Offset > 0 {
		// OFFSET is only valid after a LIMIT clause; -1 means unbounded.
		query += " LIMIT -1"
	}
	if filters.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filters.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unstructured data: %w", err)
	}
	defer rows.Close()

	var results []*model.UnstructuredData
	for rows.Next() {
		data, err := scanUnstructuredData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

func (s *SQLiteStorage) SaveProcessingJob(ctx context.Context, job *model.ProcessingJob) error {
	resultJSON, err := marshalJSONObject(job.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO processing_jobs (
			id, data_id, job_type, status, created_at, started_at,
			completed_at, result, error, retry_count, priority
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			result = excluded.result,
			error = excluded.error,
			retry_count = excluded.retry_count
	`, job.ID, job.DataID, job.JobType, job.Status, formatTime(job.CreatedAt),
		nullableTime(job.StartedAt), nullableTime(job.CompletedAt), resultJSON,
		job.Error, job.RetryCount, job.Priority)

	if err != nil {
		return fmt.Errorf("failed to save processing job: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) GetPendingJobs(ctx context.Context, jobType string, limit int) ([]*model.ProcessingJob, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data_id, job_type, status, created_at, started_at,
		       completed_at, result, error, retry_count, priority
		FROM processing_jobs
		WHERE status = ? AND job_type = ?
		ORDER BY priority DESC, created_at ASC
		LIMIT ?
	`, model.JobStatusPending, jobType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.ProcessingJob
	for rows.Next() {
		var job model.ProcessingJob
		var createdAt string
		var startedAt, completedAt, resultJSON sql.NullString

		err := rows.Scan(&job.ID, &job.DataID, &job.JobType, &job.Status, &createdAt,
			&startedAt, &completedAt, &resultJSON, &job.Error, &job.RetryCount, &job.Priority)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}

		job.CreatedAt = parseTime(createdAt)
		job.StartedAt = parseNullableTime(startedAt)
		job.CompletedAt = parseNullableTime(completedAt)

		if resultJSON.Valid && resultJSON.String != "" {
			if err := json.Unmarshal([]byte(resultJSON.String), &job.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal result: %w", err)
			}
		}

		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}

// UpdateJobStatus applies the bookkeeping for one status transition.
// A failed transition increments retry_count; nothing here re-enqueues.
func (s *SQLiteStorage) UpdateJobStatus(ctx context.Context, jobID string, status string, result map[string]interface{}, errorMsg string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var err error
	switch status {
	case model.JobStatusProcessing:
		_, err = s.db.ExecContext(ctx, `
			UPDATE processing_jobs
			SET status = ?, started_at = ?
			WHERE id = ?
		`, status, now, jobID)
	case model.JobStatusCompleted:
		var resultJSON string
		resultJSON, err = marshalJSONObject(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			UPDATE processing_jobs
			SET status = ?, completed_at = ?, result = ?, error = ?
			WHERE id = ?
		`, status, now, resultJSON, errorMsg, jobID)
	case model.JobStatusFailed:
		_, err = s.db.ExecContext(ctx, `
			UPDATE processing_jobs
			SET status = ?, error = ?, retry_count = retry_count + 1
			WHERE id = ?
		`, status, errorMsg, jobID)
	default:
		return fmt.Errorf("unknown job status %q", status)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SaveDataQuality(ctx context.Context, quality *model.DataQuality) error {
	issuesJSON, err := marshalJSONArray(quality.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO data_quality (
			id, data_id, source, quality_score, completeness_score,
			accuracy_score, freshness_score, issues, checked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quality.ID, quality.DataID, quality.Source, quality.QualityScore,
		quality.CompletenessScore, quality.AccuracyScore, quality.FreshnessScore,
		issuesJSON, formatTime(quality.CheckedAt))

	if err != nil {
		return fmt.Errorf("failed to save data quality: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) GetDataQualityStats(ctx context.Context, source string, since time.Time) (*QualityStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			AVG(quality_score),
			AVG(completeness_score),
			AVG(accuracy_score),
			AVG(freshness_score),
			COUNT(*),
			COUNT(CASE WHEN json_array_length(issues) > 0 THEN 1 END)
		FROM data_quality
		WHERE source = ? AND checked_at >= ?
	`, source, formatTime(since))

	var quality, completeness, accuracy, freshness sql.NullFloat64
	var stats QualityStats

	err := row.Scan(&quality, &completeness, &accuracy, &freshness,
		&stats.TotalItems, &stats.IssueCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get data quality stats: %w", err)
	}

	stats.AverageQuality = quality.Float64
	stats.AverageCompleteness = completeness.Float64
	stats.AverageAccuracy = accuracy.Float64
	stats.AverageFreshness = freshness.Float64

	return &stats, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUnstructuredData(row scanner) (*model.UnstructuredData, error) {
	var data model.UnstructuredData
	var publishedAt, ingestedAt, metadataJSON, tagsJSON, entitiesJSON string
	var sentimentJSON, processedAt sql.NullString

	err := row.Scan(&data.ID, &data.Source, &data.Type, &data.Title, &data.Content,
		&data.URL, &data.Author, &publishedAt, &ingestedAt, &metadataJSON,
		&tagsJSON, &entitiesJSON, &sentimentJSON, &processedAt)
	if err != nil {
		return nil, err
	}

	data.PublishedAt = parseTime(publishedAt)
	data.IngestedAt = parseTime(ingestedAt)
	data.ProcessedAt = parseNullableTime(processedAt)

	if err := json.Unmarshal([]byte(metadataJSON), &data.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &data.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &data.Entities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
	}
	if sentimentJSON.Valid && sentimentJSON.String != "" {
		if err := json.Unmarshal([]byte(sentimentJSON.String), &data.Sentiment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sentiment: %w", err)
		}
	}

	return &data, nil
}

func marshalJSONObject(m map[string]interface{}) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func marshalJSONArray(values []string) (string, error) {
	if values == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSuffix(value, "Z")); err == nil {
		return t
	}
	return time.Time{}
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTime(value.String)
	return &t
}
