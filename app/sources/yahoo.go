package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// YahooSource fetches per-symbol news from the Yahoo Finance search API
// and batched quote snapshots from the quote API. Quotes are polled at
// twice the news interval since they change less interestingly than the
// news flow around them.
type YahooSource struct {
	storage   storage.Storage
	sink      JobSink
	config    *config.SourceConfig
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	enabled   bool
}

type yahooSearchResponse struct {
	News []yahooNewsItem `json:"news"`
}

type yahooNewsItem struct {
	UUID                string   `json:"uuid"`
	Title               string   `json:"title"`
	Summary             string   `json:"summary"`
	Publisher           string   `json:"publisher"`
	Link                string   `json:"link"`
	ProviderPublishTime int64    `json:"providerPublishTime"`
	RelatedTickers      []string `json:"relatedTickers"`
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	MarketCap                  int64   `json:"marketCap"`
	TrailingPE                 float64 `json:"trailingPE"`
	DividendYield              float64 `json:"dividendYield"`
	EpsTrailingTwelveMonths    float64 `json:"epsTrailingTwelveMonths"`
	PriceToBook                float64 `json:"priceToBook"`
}

func NewYahooSource(store storage.Storage, sink JobSink, cfg *config.SourceConfig, userAgent string) *YahooSource {
	return &YahooSource{
		storage:   store,
		sink:      sink,
		config:    cfg,
		client:    &http.Client{Timeout: cfg.GetTimeout()},
		limiter:   rate.NewLimiter(rate.Every(cfg.GetRequestDelay()), 1),
		userAgent: userAgent,
		enabled:   cfg.Enabled && len(cfg.Symbols) > 0,
	}
}

func (s *YahooSource) Name() string { return "yahoo_finance" }

func (s *YahooSource) Enabled() bool { return s.enabled }

func (s *YahooSource) Start(ctx context.Context) error {
	if !s.enabled {
		slog.Info("Source disabled", "source", s.Name())
		return nil
	}

	slog.Info("Starting Yahoo Finance source", "symbols", len(s.config.Symbols), "interval", s.config.GetUpdateInterval())
	go s.runNews(ctx)
	go s.runQuotes(ctx)
	return nil
}

func (s *YahooSource) Stop(ctx context.Context) error {
	return nil
}

func (s *YahooSource) runNews(ctx context.Context) {
	s.fetchAllNews(ctx)

	ticker := time.NewTicker(s.config.GetUpdateInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchAllNews(ctx)
		}
	}
}

func (s *YahooSource) runQuotes(ctx context.Context) {
	ticker := time.NewTicker(s.config.GetUpdateInterval() * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.fetchQuotes(ctx); err != nil {
				slog.Warn("Failed to fetch quotes", "source", s.Name(), "error", err)
			}
		}
	}
}

func (s *YahooSource) fetchAllNews(ctx context.Context) {
	for _, symbol := range s.config.Symbols {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.fetchNewsForSymbol(ctx, symbol); err != nil {
			slog.Warn("Failed to fetch symbol news", "source", s.Name(), "symbol", symbol, "error", err)
		}
	}
}

func (s *YahooSource) fetchNewsForSymbol(ctx context.Context, symbol string) error {
	params := url.Values{
		"q":           {symbol},
		"lang":        {"en-US"},
		"region":      {"US"},
		"quotesCount": {"1"},
		"newsCount":   {"10"},
	}

	searchURL := fmt.Sprintf("%s/v1/finance/search?%s", s.config.BaseURL, params.Encode())

	var decoded yahooSearchResponse
	if err := s.getJSON(ctx, searchURL, &decoded); err != nil {
		return err
	}

	for _, item := range decoded.News {
		s.processNewsItem(ctx, item, symbol)
	}

	slog.Debug("Symbol news processed", "source", s.Name(), "symbol", symbol, "items", len(decoded.News))
	return nil
}

func (s *YahooSource) processNewsItem(ctx context.Context, item yahooNewsItem, symbol string) {
	if item.Title == "" || item.Link == "" {
		return
	}

	ingestedAt := time.Now().UTC()
	text := item.Title + " " + item.Summary

	publishedAt := ingestedAt
	if item.ProviderPublishTime > 0 {
		publishedAt = time.Unix(item.ProviderPublishTime, 0)
	}

	tags := []string{"yahoo_finance", "financial_news", symbol}
	tags = append(tags, GenerateTags(text)...)

	data := &model.UnstructuredData{
		ID:          newsID(s.Name(), item.Link+item.Title),
		Source:      s.Name(),
		Type:        model.TypeNews,
		Title:       item.Title,
		Content:     item.Summary,
		URL:         item.Link,
		Author:      item.Publisher,
		PublishedAt: publishedAt,
		IngestedAt:  ingestedAt,
		Metadata: map[string]interface{}{
			"primary_symbol":  symbol,
			"related_tickers": item.RelatedTickers,
			"publisher":       item.Publisher,
			"provider_id":     item.UUID,
		},
		Tags:     tags,
		Entities: ExtractEntities(text),
	}

	saveRecord(ctx, s.storage, s.sink, data)
}

func (s *YahooSource) fetchQuotes(ctx context.Context) error {
	quoteURL := fmt.Sprintf("%s/v7/finance/quote?symbols=%s",
		s.config.BaseURL, url.QueryEscape(strings.Join(s.config.Symbols, ",")))

	var decoded yahooQuoteResponse
	if err := s.getJSON(ctx, quoteURL, &decoded); err != nil {
		return err
	}

	for _, quote := range decoded.QuoteResponse.Result {
		s.processQuote(ctx, quote)
	}

	slog.Debug("Quote batch processed", "source", s.Name(), "symbols", len(decoded.QuoteResponse.Result))
	return nil
}

// processQuote stores one quote snapshot. Snapshots are point-in-time
// observations, so each one gets a fresh random id instead of a content
// hash.
func (s *YahooSource) processQuote(ctx context.Context, quote yahooQuote) {
	content := fmt.Sprintf("Symbol: %s (%s), Price: $%.2f (%+.2f%%), Volume: %d, Market Cap: $%d, P/E: %.2f, P/B: %.2f, EPS: $%.2f",
		quote.Symbol, quote.ShortName, quote.RegularMarketPrice, quote.RegularMarketChangePercent,
		quote.RegularMarketVolume, quote.MarketCap, quote.TrailingPE, quote.PriceToBook,
		quote.EpsTrailingTwelveMonths)

	entities := []model.Entity{
		{
			Name:       quote.Symbol,
			Type:       "TICKER",
			Confidence: 1.0,
			StartPos:   0,
			EndPos:     len(quote.Symbol),
		},
	}
	if quote.ShortName != "" {
		entities = append(entities, model.Entity{
			Name:       quote.ShortName,
			Type:       "ORG",
			Confidence: 0.9,
		})
	}

	data := &model.UnstructuredData{
		ID:          uuid.NewString(),
		Source:      s.Name(),
		Type:        model.TypeMarketData,
		Title:       fmt.Sprintf("%s quote snapshot - $%.2f", quote.Symbol, quote.RegularMarketPrice),
		Content:     content,
		PublishedAt: time.Unix(quote.RegularMarketTime, 0),
		IngestedAt:  time.Now().UTC(),
		Metadata: map[string]interface{}{
			"symbol":         quote.Symbol,
			"short_name":     quote.ShortName,
			"long_name":      quote.LongName,
			"price":          quote.RegularMarketPrice,
			"change":         quote.RegularMarketChange,
			"change_percent": quote.RegularMarketChangePercent,
			"volume":         quote.RegularMarketVolume,
			"market_cap":     quote.MarketCap,
			"trailing_pe":    quote.TrailingPE,
			"dividend_yield": quote.DividendYield,
			"eps_ttm":        quote.EpsTrailingTwelveMonths,
			"price_to_book":  quote.PriceToBook,
		},
		Tags:     quoteTags(quote),
		Entities: entities,
	}

	saveRecord(ctx, s.storage, s.sink, data)
}

func quoteTags(quote yahooQuote) []string {
	tags := []string{"yahoo_finance", "market_data", quote.Symbol}

	if quote.RegularMarketChangePercent > 5 {
		tags = append(tags, "significant_gain")
	} else if quote.RegularMarketChangePercent < -5 {
		tags = append(tags, "significant_loss")
	}

	if quote.TrailingPE > 0 && quote.TrailingPE < 15 {
		tags = append(tags, "low_pe")
	} else if quote.TrailingPE > 25 {
		tags = append(tags, "high_pe")
	}

	if quote.DividendYield > 0.03 {
		tags = append(tags, "dividend_stock")
	}

	return tags
}

func (s *YahooSource) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
