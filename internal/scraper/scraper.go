package scraper

import (
	"context"
	"log/slog"

	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/proxy"
)

// Fetcher retrieves the HTML of a page. Failures are *FetchError values.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) (string, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// NewRenderer creates the rendered fetcher for the configured backend.
// Browsers accept no proxy credentials, so an authenticated proxy is used
// without them on the rendered path.
func NewRenderer(cfg *config.AppConfig, agents *UserAgentPool, proxies *proxy.Manager, logger *slog.Logger) Fetcher {
	logger = logging.OrDefault(logger)
	if proxies.Authenticated() {
		logger.Warn("proxy credentials are not passed to the browser; rendered fetches may be refused by the proxy",
			"backend", cfg.Browser.Backend)
	}
	if cfg.Browser.Backend == config.BackendRod {
		return NewRodRenderer(cfg, agents, proxies, logger)
	}
	return NewChromeRenderer(cfg, agents, proxies, logger)
}
