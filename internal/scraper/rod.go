package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/proxy"
)

// RodRenderer renders pages through go-rod with the stealth evasions
// injected. Like ChromeRenderer it owns one browser per Fetch.
type RodRenderer struct {
	Config  *config.AppConfig
	Agents  *UserAgentPool
	Proxies *proxy.Manager
	Logger  *slog.Logger
}

// NewRodRenderer creates a new rod renderer
func NewRodRenderer(cfg *config.AppConfig, agents *UserAgentPool, proxies *proxy.Manager, logger *slog.Logger) *RodRenderer {
	return &RodRenderer{
		Config:  cfg,
		Agents:  agents,
		Proxies: proxies,
		Logger:  logging.OrDefault(logger),
	}
}

// Name identifies the fetcher in logs
func (r *RodRenderer) Name() string { return "rod" }

func (r *RodRenderer) launcher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(!r.Config.Browser.Headful).
		NoSandbox(r.Config.Browser.NoSandbox)

	if r.Config.Browser.BrowserBin != "" {
		l = l.Bin(r.Config.Browser.BrowserBin)
	}
	if addr := r.Proxies.ServerAddress(); addr != "" {
		l = l.Proxy(addr)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	return l
}

// Fetch loads url, waits for the settle period and returns the final DOM
func (r *RodRenderer) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	loadTimeout := r.Config.Scraper.RenderTimeout()
	settle := r.Config.Scraper.RenderSettle()

	runCtx, cancel := context.WithTimeout(ctx, loadTimeout+settle)
	defer cancel()

	l := r.launcher(runCtx)
	defer l.Cleanup()
	defer l.Kill()

	controlURL, err := l.Launch()
	if err != nil {
		return "", classifyRender(ctx, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(runCtx)
	if err := browser.Connect(); err != nil {
		return "", classifyRender(ctx, err)
	}
	defer func() { _ = browser.Close() }()

	p, err := stealth.Page(browser)
	if err != nil {
		return "", classifyRender(ctx, err)
	}
	defer func() { _ = p.Close() }()

	userAgent := r.Config.Browser.UserAgent
	if userAgent == "" {
		userAgent = r.Agents.Random()
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: r.Config.Scraper.AcceptLanguage,
	}); err != nil {
		return "", classifyRender(ctx, err)
	}

	loading := p.Timeout(loadTimeout)
	if err := loading.Navigate(url); err != nil {
		return "", classifyRender(ctx, err)
	}
	if err := loading.WaitLoad(); err != nil {
		return "", classifyRender(ctx, err)
	}
	loading.CancelTimeout()

	select {
	case <-time.After(settle):
	case <-runCtx.Done():
		return "", classifyRender(ctx, runCtx.Err())
	}

	html, err := p.HTML()
	if err != nil {
		return "", classifyRender(ctx, err)
	}

	r.Logger.Debug("rendered page", "url", url, "bytes", len(html), "took", time.Since(start))
	return html, nil
}
