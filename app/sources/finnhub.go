package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// streamReconnectBackoff is how long the streaming loop waits after a
// dropped connection before dialing again.
const streamReconnectBackoff = 30 * time.Second

// FinnhubSource combines a polling news fetch with a long-lived websocket
// delivering real-time trade ticks. Ticks are distinct events and are
// stored under fresh random ids, never deduplicated.
type FinnhubSource struct {
	storage   storage.Storage
	sink      JobSink
	config    *config.SourceConfig
	client    *http.Client
	userAgent string
	enabled   bool

	mu   sync.Mutex
	conn *websocket.Conn
}

type finnhubNewsItem struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

type finnhubStreamMessage struct {
	Type string             `json:"type"`
	Data []finnhubTradeTick `json:"data"`
}

type finnhubTradeTick struct {
	Symbol    string  `json:"s"`
	Price     float64 `json:"p"`
	Timestamp int64   `json:"t"` // milliseconds
	Volume    float64 `json:"v"`
}

func NewFinnhubSource(store storage.Storage, sink JobSink, cfg *config.SourceConfig, userAgent string) *FinnhubSource {
	return &FinnhubSource{
		storage:   store,
		sink:      sink,
		config:    cfg,
		client:    &http.Client{Timeout: cfg.GetTimeout()},
		userAgent: userAgent,
		enabled:   cfg.Enabled && cfg.APIKey != "",
	}
}

func (s *FinnhubSource) Name() string { return "finnhub" }

func (s *FinnhubSource) Enabled() bool { return s.enabled }

func (s *FinnhubSource) Start(ctx context.Context) error {
	if !s.enabled {
		slog.Info("Source disabled", "source", s.Name())
		return nil
	}

	slog.Info("Starting Finnhub source", "symbols", len(s.config.Symbols), "interval", s.config.GetUpdateInterval())
	go s.runNews(ctx)
	go s.runStream(ctx)
	return nil
}

// Stop tears down the streaming connection. Safe to call multiple times
// and safe when Start never ran.
func (s *FinnhubSource) Stop(ctx context.Context) error {
	s.closeConn()
	return nil
}

func (s *FinnhubSource) closeConn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *FinnhubSource) runNews(ctx context.Context) {
	if err := s.fetchNews(ctx); err != nil {
		slog.Warn("Failed to fetch news", "source", s.Name(), "error", err)
	}

	ticker := time.NewTicker(s.config.GetUpdateInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.fetchNews(ctx); err != nil {
				slog.Warn("Failed to fetch news", "source", s.Name(), "error", err)
			}
		}
	}
}

func (s *FinnhubSource) fetchNews(ctx context.Context) error {
	from := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	to := time.Now().Format("2006-01-02")

	newsURL := fmt.Sprintf("%s/news?category=general&from=%s&to=%s&token=%s",
		s.config.BaseURL, from, to, s.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, newsURL, nil)
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

	var items []finnhubNewsItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return fmt.Errorf("failed to decode news response: %w", err)
	}

	for _, item := range items {
		s.processNewsItem(ctx, item)
	}

	slog.Debug("News batch processed", "source", s.Name(), "items", len(items))
	return nil
}

func (s *FinnhubSource) processNewsItem(ctx context.Context, item finnhubNewsItem) {
	ingestedAt := time.Now().UTC()
	text := item.Headline + " " + item.Summary

	tags := []string{"finnhub", "financial_news"}
	if item.Category != "" {
		tags = append(tags, item.Category)
	}
	tags = append(tags, GenerateTags(text)...)

	data := &model.UnstructuredData{
		ID:          newsID(s.Name(), item.URL+item.Headline),
		Source:      s.Name(),
		Type:        model.TypeNews,
		Title:       item.Headline,
		Content:     item.Summary,
		URL:         item.URL,
		Author:      item.Source,
		PublishedAt: time.Unix(item.DateTime, 0),
		IngestedAt:  ingestedAt,
		Metadata: map[string]interface{}{
			"category":    item.Category,
			"image_url":   item.Image,
			"symbols":     splitRelated(item.Related),
			"provider_id": item.ID,
		},
		Tags:     tags,
		Entities: ExtractEntities(text),
	}

	saveRecord(ctx, s.storage, s.sink, data)
}

// splitRelated turns finnhub's comma-separated related-ticker field into
// a clean slice.
func splitRelated(related string) []string {
	if related == "" {
		return []string{}
	}

	var symbols []string
	for _, symbol := range strings.Split(related, ",") {
		if symbol = strings.TrimSpace(symbol); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// runStream maintains the websocket connection: on disconnect it waits a
// fixed backoff and redials until the context is cancelled.
func (s *FinnhubSource) runStream(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.streamOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("Stream connection lost", "source", s.Name(), "backoff", streamReconnectBackoff, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(streamReconnectBackoff):
		}
	}
}

func (s *FinnhubSource) streamOnce(ctx context.Context) error {
	wsURL := fmt.Sprintf("%s?token=%s", s.config.StreamURL, s.config.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial stream: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer s.closeConn()

	// Unblock the pending read when the shared cancellation fires.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for _, symbol := range s.config.Symbols {
		sub := map[string]interface{}{"type": "subscribe", "symbol": symbol}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", symbol, err)
		}
	}

	slog.Info("Stream connected", "source", s.Name(), "symbols", len(s.config.Symbols))

	for {
		var msg finnhubStreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read stream message: %w", err)
		}

		if msg.Type == "trade" {
			s.processTrades(ctx, msg.Data)
		}
	}
}

func (s *FinnhubSource) processTrades(ctx context.Context, ticks []finnhubTradeTick) {
	for _, tick := range ticks {
		data := &model.UnstructuredData{
			ID:          uuid.NewString(),
			Source:      s.Name(),
			Type:        model.TypeMarketData,
			Title:       fmt.Sprintf("%s trade at $%.2f", tick.Symbol, tick.Price),
			Content:     fmt.Sprintf("Symbol: %s, Price: $%.2f, Volume: %.0f", tick.Symbol, tick.Price, tick.Volume),
			PublishedAt: time.Unix(0, tick.Timestamp*int64(time.Millisecond)),
			IngestedAt:  time.Now().UTC(),
			Metadata: map[string]interface{}{
				"symbol":    tick.Symbol,
				"price":     tick.Price,
				"volume":    tick.Volume,
				"timestamp": tick.Timestamp,
			},
			Tags: []string{"finnhub", "real_time", "trade_data", tick.Symbol},
		}

		saveRecord(ctx, s.storage, s.sink, data)
	}
}
