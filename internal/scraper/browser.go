package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/proxy"
)

// hideWebdriver runs before any page script
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// ChromeRenderer renders pages in a headless Chrome driven by chromedp.
// Every Fetch launches its own browser process and tears it down before
// returning.
type ChromeRenderer struct {
	Config  *config.AppConfig
	Agents  *UserAgentPool
	Proxies *proxy.Manager
	Logger  *slog.Logger
}

// NewChromeRenderer creates a new chromedp renderer
func NewChromeRenderer(cfg *config.AppConfig, agents *UserAgentPool, proxies *proxy.Manager, logger *slog.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		Config:  cfg,
		Agents:  agents,
		Proxies: proxies,
		Logger:  logging.OrDefault(logger),
	}
}

// Name identifies the fetcher in logs
func (r *ChromeRenderer) Name() string { return "chromedp" }

// allocatorOptions builds the Chrome flags that suppress automation hints
func (r *ChromeRenderer) allocatorOptions(userAgent string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !r.Config.Browser.Headful),
		chromedp.UserAgent(userAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.Config.Browser.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if r.Config.Browser.BrowserBin != "" {
		opts = append(opts, chromedp.ExecPath(r.Config.Browser.BrowserBin))
	}
	if addr := r.Proxies.ServerAddress(); addr != "" {
		opts = append(opts, chromedp.ProxyServer(addr))
	}
	return opts
}

func (r *ChromeRenderer) userAgent() string {
	if r.Config.Browser.UserAgent != "" {
		return r.Config.Browser.UserAgent
	}
	return r.Agents.Random()
}

// Fetch loads url, waits for the settle period and returns the final DOM
func (r *ChromeRenderer) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	settle := r.Config.Scraper.RenderSettle()

	// Create context
	runCtx, cancel := context.WithTimeout(ctx, r.Config.Scraper.RenderTimeout()+settle)
	defer cancel()

	// Create a new ExecAllocator
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(runCtx, r.allocatorOptions(r.userAgent())...)
	defer cancelAlloc()

	// Create a new browser context
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	errChan := make(chan error, 1)
	var html string

	// Run the browser tasks
	go func() {
		errChan <- chromedp.Run(browserCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
				return err
			}),
			chromedp.Navigate(url),
			chromedp.Sleep(settle),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	}()

	// Wait for completion or timeout
	select {
	case err := <-errChan:
		if err != nil {
			return "", classifyRender(ctx, err)
		}
	case <-runCtx.Done():
		return "", classifyRender(ctx, runCtx.Err())
	}

	r.Logger.Debug("rendered page", "url", url, "bytes", len(html), "took", time.Since(start))
	return html, nil
}
