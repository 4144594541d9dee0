package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// NewsAPISource polls the NewsAPI "everything" endpoint once per
// configured keyword on each tick. The rate limiter enforces the
// self-imposed inter-request delay; NewsAPI free-tier keys throttle
// aggressively otherwise.
type NewsAPISource struct {
	storage   storage.Storage
	sink      JobSink
	config    *config.SourceConfig
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	enabled   bool
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func NewNewsAPISource(store storage.Storage, sink JobSink, cfg *config.SourceConfig, userAgent string) *NewsAPISource {
	return &NewsAPISource{
		storage:   store,
		sink:      sink,
		config:    cfg,
		client:    &http.Client{Timeout: cfg.GetTimeout()},
		limiter:   rate.NewLimiter(rate.Every(cfg.GetRequestDelay()), 1),
		userAgent: userAgent,
		enabled:   cfg.Enabled && cfg.APIKey != "",
	}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

func (s *NewsAPISource) Enabled() bool { return s.enabled }

func (s *NewsAPISource) Start(ctx context.Context) error {
	if !s.enabled {
		slog.Info("Source disabled", "source", s.Name())
		return nil
	}

	slog.Info("Starting NewsAPI source", "keywords", len(s.config.Keywords), "interval", s.config.GetUpdateInterval())
	go s.run(ctx)
	return nil
}

func (s *NewsAPISource) Stop(ctx context.Context) error {
	return nil
}

func (s *NewsAPISource) run(ctx context.Context) {
	s.fetchAll(ctx)

	ticker := time.NewTicker(s.config.GetUpdateInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAll(ctx)
		}
	}
}

func (s *NewsAPISource) fetchAll(ctx context.Context) {
	for _, keyword := range s.config.Keywords {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.fetchKeyword(ctx, keyword); err != nil {
			slog.Warn("Failed to fetch keyword", "source", s.Name(), "keyword", keyword, "error", err)
		}
	}
}

func (s *NewsAPISource) fetchKeyword(ctx context.Context, keyword string) error {
	params := url.Values{
		"q":        {keyword},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {"20"},
		"apiKey":   {s.config.APIKey},
	}

	apiURL := fmt.Sprintf("%s/everything?%s", s.config.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var decoded newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode news response: %w", err)
	}

	for _, article := range decoded.Articles {
		s.processArticle(ctx, article, keyword)
	}

	slog.Debug("Keyword processed", "source", s.Name(), "keyword", keyword, "articles", len(decoded.Articles))
	return nil
}

func (s *NewsAPISource) processArticle(ctx context.Context, article newsAPIArticle, keyword string) {
	ingestedAt := time.Now().UTC()
	text := article.Title + " " + article.Description

	tags := []string{"newsapi", "financial_news"}
	tags = append(tags, GenerateTags(text+" "+keyword)...)

	data := &model.UnstructuredData{
		ID:          newsID(s.Name(), article.URL+article.Title),
		Source:      s.Name(),
		Type:        model.TypeNews,
		Title:       article.Title,
		Content:     article.Description,
		URL:         article.URL,
		Author:      article.Author,
		PublishedAt: ParsePublishedAt(article.PublishedAt, ingestedAt),
		IngestedAt:  ingestedAt,
		Metadata: map[string]interface{}{
			"search_term":   keyword,
			"provider_id":   article.Source.ID,
			"provider_name": article.Source.Name,
			"image_url":     article.URLToImage,
		},
		Tags:     tags,
		Entities: ExtractEntities(text),
	}

	saveRecord(ctx, s.storage, s.sink, data)
}
