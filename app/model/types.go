package model

import (
	"time"
)

// Record types.
const (
	TypeNews       = "news"
	TypeMarketData = "market_data"
)

// UnstructuredData is the canonical record every source adapter produces.
// The ID is content-derived for news (hash of URL+title, or feed guid) so
// re-ingesting the same item collapses into a single row; streaming ticks
// carry random ids because each tick is a distinct event.
type UnstructuredData struct {
	ID          string                 `json:"id"`
	Source      string                 `json:"source"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	URL         string                 `json:"url"`
	Author      string                 `json:"author"`
	PublishedAt time.Time              `json:"published_at"`
	IngestedAt  time.Time              `json:"ingested_at"`
	Metadata    map[string]interface{} `json:"metadata"`
	Tags        []string               `json:"tags"`
	Entities    []Entity               `json:"entities"`
	Sentiment   *SentimentScore        `json:"sentiment,omitempty"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
}

// Entity is a best-effort heuristic extraction result. Confidence values are
// fixed per heuristic, not calibrated probabilities.
type Entity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"` // ORG, TICKER, MONEY
	Confidence float64 `json:"confidence"`
	StartPos   int     `json:"start_pos"`
	EndPos     int     `json:"end_pos"`
}

// SentimentScore is filled in by the external sentiment worker, never by
// the ingestion core itself.
type SentimentScore struct {
	Overall   float64            `json:"overall"`  // -1 to 1
	Positive  float64            `json:"positive"` // 0 to 1
	Negative  float64            `json:"negative"` // 0 to 1
	Neutral   float64            `json:"neutral"`  // 0 to 1
	Magnitude float64            `json:"magnitude"`
	Aspects   map[string]float64 `json:"aspects,omitempty"`
}

// Processing job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Processing job types.
const (
	JobTypeSentiment     = "sentiment"
	JobTypeEntityExtract = "entity_extraction"
	JobTypeSummarization = "summarization"
	JobTypeQualityCheck  = "quality_check"
)

// ProcessingJob is a unit of deferred enrichment work referencing a record
// by id. Status transitions: pending -> processing -> completed|failed.
// A failed update increments RetryCount but nothing in this pipeline
// re-enqueues; retry policy belongs to the job producer.
type ProcessingJob struct {
	ID          string                 `json:"id"`
	DataID      string                 `json:"data_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	Priority    int                    `json:"priority"`
}

// DataQuality holds the heuristic quality scores computed for one record.
type DataQuality struct {
	ID                string    `json:"id"`
	DataID            string    `json:"data_id"`
	Source            string    `json:"source"`
	QualityScore      float64   `json:"quality_score"`
	CompletenessScore float64   `json:"completeness_score"`
	AccuracyScore     float64   `json:"accuracy_score"`
	FreshnessScore    float64   `json:"freshness_score"`
	Issues            []string  `json:"issues"`
	CheckedAt         time.Time `json:"checked_at"`
}
