package config

// defaults returns the built-in configuration for every known source.
// A YAML file in the sources directory overlays these values, so the daemon
// runs out of the box with an empty directory (sources requiring credentials
// stay disabled until their key is present in the environment).
func defaults() map[string]*SourceConfig {
	return map[string]*SourceConfig{
		"finnhub": {
			Name:           "finnhub",
			Enabled:        true,
			APIKeyEnv:      "FINNHUB_API_KEY",
			BaseURL:        "https://finnhub.io/api/v1",
			StreamURL:      "wss://ws.finnhub.io",
			UpdateInterval: 30,
			Symbols:        []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "JPM", "BAC", "WFC", "GS", "MS"},
		},
		"reuters": {
			Name:           "reuters",
			Enabled:        true,
			UpdateInterval: 300,
			Feeds:          []string{"https://www.reuters.com/rssfeed/businessNews"},
			Categories:     []string{"business", "markets", "finance", "economics"},
		},
		"yahoo_finance": {
			Name:           "yahoo_finance",
			Enabled:        true,
			BaseURL:        "https://query1.finance.yahoo.com",
			UpdateInterval: 120,
			Symbols:        []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "SPY", "QQQ", "IWM"},
		},
		"newsapi": {
			Name:           "newsapi",
			Enabled:        false,
			APIKeyEnv:      "NEWSAPI_KEY",
			BaseURL:        "https://newsapi.org/v2",
			UpdateInterval: 600,
			Keywords:       []string{"credit rating", "debt", "bankruptcy", "financial crisis", "earnings", "revenue"},
		},
		"marketwatch": {
			Name:           "marketwatch",
			Enabled:        true,
			UpdateInterval: 300,
			Feeds: []string{
				"https://feeds.marketwatch.com/marketwatch/topstories/",
				"https://feeds.marketwatch.com/marketwatch/marketpulse/",
			},
		},
		"bloomberg": {
			Name:           "bloomberg",
			Enabled:        true,
			UpdateInterval: 180,
			Feeds:          []string{"https://feeds.bloomberg.com/markets/news.rss"},
		},
		"federal_reserve": {
			Name:           "federal_reserve",
			Enabled:        true,
			UpdateInterval: 1800,
			Feeds:          []string{"https://www.federalreserve.gov/feeds/press_all.xml"},
		},
		"kofin": {
			Name:           "kofin",
			Enabled:        true,
			BaseURL:        "https://kofin.com",
			UpdateInterval: 600,
			Categories:     []string{"market-news", "corporate-finance", "macro-economics"},
		},
	}
}
