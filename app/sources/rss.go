package sources

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// RSSSource polls one or more wire-service RSS/Atom feeds on a fixed
// interval. One instance serves every RSS-backed source (reuters,
// bloomberg, marketwatch, federal_reserve); they differ only in feed
// URLs and base tags.
type RSSSource struct {
	name      string
	storage   storage.Storage
	sink      JobSink
	config    *config.SourceConfig
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	baseTags  []string
	enabled   bool
}

func NewRSSSource(name string, store storage.Storage, sink JobSink, cfg *config.SourceConfig, userAgent string, baseTags []string) *RSSSource {
	return &RSSSource{
		name:      name,
		storage:   store,
		sink:      sink,
		config:    cfg,
		client:    &http.Client{Timeout: cfg.GetTimeout()},
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
		baseTags:  baseTags,
		enabled:   cfg.Enabled && len(cfg.Feeds) > 0,
	}
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Enabled() bool { return s.enabled }

func (s *RSSSource) Start(ctx context.Context) error {
	if !s.enabled {
		slog.Info("Source disabled", "source", s.name)
		return nil
	}

	slog.Info("Starting RSS source", "source", s.name, "feeds", len(s.config.Feeds), "interval", s.config.GetUpdateInterval())
	go s.run(ctx)
	return nil
}

func (s *RSSSource) Stop(ctx context.Context) error {
	// The poll loop exits on context cancellation; nothing to tear down.
	return nil
}

func (s *RSSSource) run(ctx context.Context) {
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

// fetchAll processes every configured feed URL; a failing feed is logged
// and skipped so the remaining feeds still get fetched.
func (s *RSSSource) fetchAll(ctx context.Context) {
	for _, feedURL := range s.config.Feeds {
		if ctx.Err() != nil {
			return
		}
		if err := s.fetchFeed(ctx, feedURL); err != nil {
			slog.Warn("Failed to fetch feed", "source", s.name, "url", feedURL, "error", err)
		}
	}
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	for _, item := range feed.Items {
		s.processItem(ctx, item)
	}

	slog.Debug("Feed processed", "source", s.name, "url", feedURL, "items", len(feed.Items))
	return nil
}

func (s *RSSSource) processItem(ctx context.Context, item *gofeed.Item) {
	ingestedAt := time.Now().UTC()

	// guid is the dedup identity; fall back to the link when absent.
	identifier := cmp.Or(item.GUID, item.Link)

	publishedAt := ingestedAt
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	} else {
		publishedAt = ParsePublishedAt(item.Published, ingestedAt)
	}

	content := StripMarkup(item.Description)
	text := item.Title + " " + content

	tags := append([]string{}, s.baseTags...)
	for _, category := range item.Categories {
		if category != "" {
			tags = append(tags, strings.ToLower(strings.ReplaceAll(category, " ", "_")))
		}
	}
	tags = append(tags, GenerateTags(text)...)

	data := &model.UnstructuredData{
		ID:          newsID(s.name, identifier),
		Source:      s.name,
		Type:        model.TypeNews,
		Title:       item.Title,
		Content:     content,
		URL:         item.Link,
		Author:      s.itemAuthor(item),
		PublishedAt: publishedAt,
		IngestedAt:  ingestedAt,
		Metadata: map[string]interface{}{
			"guid":       item.GUID,
			"categories": item.Categories,
		},
		Tags:     tags,
		Entities: ExtractEntities(text),
	}

	saveRecord(ctx, s.storage, s.sink, data)
}

func (s *RSSSource) itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return s.name
}

// StripMarkup removes CDATA wrappers and anything that looks like an
// HTML/XML tag from a feed description.
func StripMarkup(text string) string {
	text = strings.ReplaceAll(text, "<![CDATA[", "")
	text = strings.ReplaceAll(text, "]]>", "")

	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			} else {
				b.WriteRune(r)
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
