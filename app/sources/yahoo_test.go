package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func newYahooTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/finance/search":
			if got := r.URL.Query().Get("q"); got != "AAPL" {
				t.Errorf("unexpected search query %q", got)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"news": []map[string]interface{}{
					{
						"uuid":                "y-1",
						"title":               "XYZ Corp downgraded after earnings miss",
						"summary":             "Rating agency cites rising debt levels.",
						"publisher":           "Test Wire",
						"link":                "https://example.com/y1",
						"providerPublishTime": int64(1787218200),
						"relatedTickers":      []string{"AAPL"},
					},
				},
			})
		case "/v7/finance/quote":
			if got := r.URL.Query().Get("symbols"); got != "AAPL" {
				t.Errorf("unexpected quote symbols %q", got)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"quoteResponse": map[string]interface{}{
					"result": []map[string]interface{}{
						{
							"symbol":                     "AAPL",
							"shortName":                  "Apple Inc.",
							"regularMarketPrice":         231.5,
							"regularMarketChangePercent": -6.1,
							"regularMarketTime":          int64(1787218200),
							"trailingPE":                 12.4,
							"dividendYield":              0.04,
						},
					},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestYahooSource(server *httptest.Server, store storage.Storage, sink JobSink) *YahooSource {
	return NewYahooSource(store, sink, &config.SourceConfig{
		Name:           "yahoo_finance",
		Enabled:        true,
		BaseURL:        server.URL,
		UpdateInterval: 120,
		RequestDelay:   1, // keep the limiter out of the test's way
		Symbols:        []string{"AAPL"},
	}, "test-agent")
}

func TestYahooFetchNews(t *testing.T) {
	server := newYahooTestServer(t)
	defer server.Close()

	store := storage.NewMemoryStorage()
	sink := &captureSink{}
	source := newTestYahooSource(server, store, sink)
	ctx := context.Background()

	source.fetchAllNews(ctx)

	records, err := store.ListUnstructuredData(ctx, storage.Filters{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	record := records[0]
	wantID := newsID("yahoo_finance", "https://example.com/y1XYZ Corp downgraded after earnings miss")
	if record.ID != wantID {
		t.Errorf("unexpected id %q, want %q", record.ID, wantID)
	}
	if record.Type != model.TypeNews || record.Author != "Test Wire" {
		t.Errorf("unexpected record: %+v", record)
	}
	if record.Metadata["primary_symbol"] != "AAPL" {
		t.Errorf("unexpected metadata: %v", record.Metadata)
	}
	if !containsTag(record.Tags, "AAPL") || !containsTag(record.Tags, "credit_rating") {
		t.Errorf("unexpected tags: %v", record.Tags)
	}
	if len(sink.jobs) != 2 {
		t.Errorf("expected sentiment and quality jobs, got %d", len(sink.jobs))
	}

	// Refetch collapses onto the same id.
	source.fetchAllNews(ctx)
	records, _ = store.ListUnstructuredData(ctx, storage.Filters{})
	if len(records) != 1 {
		t.Errorf("refetch should not duplicate, got %d records", len(records))
	}
}

func TestYahooFetchQuotes(t *testing.T) {
	server := newYahooTestServer(t)
	defer server.Close()

	store := storage.NewMemoryStorage()
	sink := &captureSink{}
	source := newTestYahooSource(server, store, sink)
	ctx := context.Background()

	if err := source.fetchQuotes(ctx); err != nil {
		t.Fatalf("fetchQuotes failed: %v", err)
	}

	records, err := store.ListUnstructuredData(ctx, storage.Filters{Type: model.TypeMarketData})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(records))
	}

	snapshot := records[0]
	if snapshot.Metadata["symbol"] != "AAPL" {
		t.Errorf("unexpected metadata: %v", snapshot.Metadata)
	}
	for _, tag := range []string{"market_data", "significant_loss", "low_pe", "dividend_stock"} {
		if !containsTag(snapshot.Tags, tag) {
			t.Errorf("missing tag %q in %v", tag, snapshot.Tags)
		}
	}
	if len(snapshot.Entities) != 2 || snapshot.Entities[0].Name != "AAPL" || snapshot.Entities[1].Name != "Apple Inc." {
		t.Errorf("unexpected entities: %+v", snapshot.Entities)
	}

	// Snapshots are not news; no enrichment jobs are produced.
	if len(sink.jobs) != 0 {
		t.Errorf("expected no jobs for market data, got %d", len(sink.jobs))
	}
}

func TestYahooDisabledWithoutSymbols(t *testing.T) {
	source := NewYahooSource(storage.NewMemoryStorage(), nil, &config.SourceConfig{
		Name:    "yahoo_finance",
		Enabled: true,
	}, "test-agent")

	if source.Enabled() {
		t.Error("source with no symbols should be disabled")
	}
	if err := source.Start(context.Background()); err != nil {
		t.Errorf("disabled start should be a no-op, got %v", err)
	}
}

func TestQuoteTags(t *testing.T) {
	tests := []struct {
		name  string
		quote yahooQuote
		want  []string
	}{
		{
			"big gain high pe",
			yahooQuote{Symbol: "NVDA", RegularMarketChangePercent: 7.2, TrailingPE: 48},
			[]string{"yahoo_finance", "market_data", "NVDA", "significant_gain", "high_pe"},
		},
		{
			"flat no pe",
			yahooQuote{Symbol: "SPY", RegularMarketChangePercent: 0.1},
			[]string{"yahoo_finance", "market_data", "SPY"},
		},
		{
			"dividend payer",
			yahooQuote{Symbol: "T", RegularMarketChangePercent: -0.4, TrailingPE: 8, DividendYield: 0.06},
			[]string{"yahoo_finance", "market_data", "T", "low_pe", "dividend_stock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quoteTags(tt.quote)
			if len(got) != len(tt.want) {
				t.Fatalf("quoteTags = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("quoteTags = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
