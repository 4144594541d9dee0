package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gaixen/credtech-ingest/app/config"
	"github.com/gaixen/credtech-ingest/app/model"
	"github.com/gaixen/credtech-ingest/app/storage"
)

func TestFinnhubSourceFetchNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if token := r.URL.Query().Get("token"); token != "test-key" {
			t.Errorf("unexpected token %q", token)
		}

		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"category": "company",
				"datetime": 1787477400,
				"headline": "XYZ Corp credit rating cut",
				"id":       101,
				"related":  "XYZ, ABC ,",
				"source":   "Example Wire",
				"summary":  "Agency cites rising debt.",
				"url":      "https://example.com/f1",
			},
		})
	}))
	defer server.Close()

	store := storage.NewMemoryStorage()
	sink := &captureSink{}
	cfg := &config.SourceConfig{
		Name:    "finnhub",
		Enabled: true,
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5,
	}

	source := NewFinnhubSource(store, sink, cfg, "test-agent/1.0")
	if err := source.fetchNews(context.Background()); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	records, err := store.ListUnstructuredData(context.Background(), storage.Filters{Source: "finnhub"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	record := records[0]
	if record.Type != model.TypeNews {
		t.Errorf("expected news type, got %q", record.Type)
	}
	if got := record.Metadata["symbols"]; !reflect.DeepEqual(got, []string{"XYZ", "ABC"}) {
		t.Errorf("related symbols not cleaned: %v", got)
	}
	if len(sink.jobs) != 2 {
		t.Errorf("expected sentiment and quality_check jobs, got %d", len(sink.jobs))
	}
}

func TestFinnhubSourceDisabledWithoutKey(t *testing.T) {
	cfg := &config.SourceConfig{Name: "finnhub", Enabled: true}
	source := NewFinnhubSource(storage.NewMemoryStorage(), nil, cfg, "ua")

	if source.Enabled() {
		t.Error("source without a credential should report disabled")
	}
	if err := source.Start(context.Background()); err != nil {
		t.Errorf("disabled start should be a successful no-op: %v", err)
	}
}

func TestFinnhubSourceStopIsIdempotent(t *testing.T) {
	cfg := &config.SourceConfig{Name: "finnhub", Enabled: true, APIKey: "k"}
	source := NewFinnhubSource(storage.NewMemoryStorage(), nil, cfg, "ua")

	// Stop must be safe before Start and safe to call repeatedly.
	ctx := context.Background()
	if err := source.Stop(ctx); err != nil {
		t.Errorf("first stop failed: %v", err)
	}
	if err := source.Stop(ctx); err != nil {
		t.Errorf("second stop failed: %v", err)
	}
}

func TestSplitRelated(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"AAPL", []string{"AAPL"}},
		{"AAPL,MSFT", []string{"AAPL", "MSFT"}},
		{" AAPL , MSFT ,, ", []string{"AAPL", "MSFT"}},
	}

	for _, tt := range tests {
		if got := splitRelated(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitRelated(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
