package config

import "slices"

// DefaultUserAgents provides a list of common desktop browser user agents
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// DefaultPriceSelectors is the ordered list of common price-bearing selectors
var DefaultPriceSelectors = []string{
	".price",
	".product-price",
	".price-current",
	".price-value",
	"#price",
	"#product-price",
	".price-box .price",
	`[class*="price"]`,
	`[id*="price"]`,
	".cost",
	".amount",
	".price-display",
	".current-price",
	".sale-price",
}

// Default creates the default configuration
func Default() *AppConfig {
	return &AppConfig{
		Scraper: ScraperConfig{
			Workers:                  2,
			RequestTimeoutSeconds:    10,
			RenderTimeoutSeconds:     15,
			RenderSettleSeconds:      2,
			InterRequestDelaySeconds: 1,
			MaxRetries:               0,
			UserAgentPool:            slices.Clone(DefaultUserAgents),
			AcceptLanguage:           "fr-FR,fr;q=0.9,en;q=0.8",
		},
		IO: IOConfig{
			OutputFile:   "readings.json",
			OutputFormat: "table",
		},
		Extraction: ExtractionConfig{
			PriceSelectors:  slices.Clone(DefaultPriceSelectors),
			MinRegexAmount:  0.01,
			MaxAmount:       999999,
			DefaultCurrency: "EUR",
		},
		Proxies: ProxyConfig{
			Rotate: true,
		},
		Browser: BrowserConfig{
			Backend: BackendChromedp,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
