package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/extraction"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/internal/proxy"
	"github.com/williampepple1/pricewatch/internal/scraper"
	"github.com/williampepple1/pricewatch/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMissingURL is reported for a target without a URL
	ErrMissingURL = errors.New("missing url")
	// ErrInvalidURL is reported for a URL that is not absolute http(s)
	ErrInvalidURL = errors.New("invalid url")
	// ErrCancelled is reported when the caller's context ends mid-scrape
	ErrCancelled = errors.New("cancelled")
)

var tracer = otel.Tracer("github.com/williampepple1/pricewatch/internal/engine")

// Scraper produces exactly one reading per target
type Scraper interface {
	Scrape(ctx context.Context, target models.ScrapeTarget) models.PriceReading
}

// Orchestrator runs the static-then-rendered fallback chain for one target
// at a time. It keeps no state between calls.
type Orchestrator struct {
	Static    scraper.Fetcher
	Rendered  scraper.Fetcher
	Extractor *extraction.Extractor
	Logger    *slog.Logger
	// Now stamps readings; time.Now when nil.
	Now func() time.Time
}

// New creates a new orchestrator from its collaborators
func New(static, rendered scraper.Fetcher, extractor *extraction.Extractor, logger *slog.Logger) *Orchestrator {
	logger = logging.OrDefault(logger)
	if extractor == nil {
		extractor = extraction.NewExtractor(nil, logger)
	}
	return &Orchestrator{
		Static:    static,
		Rendered:  rendered,
		Extractor: extractor,
		Logger:    logger,
	}
}

// NewFromConfig wires the configured fetchers, proxies and extractor
func NewFromConfig(cfg *config.AppConfig, logger *slog.Logger) (*Orchestrator, error) {
	proxies, err := proxy.NewManager(&cfg.Proxies)
	if err != nil {
		return nil, fmt.Errorf("proxies: %w", err)
	}
	agents := scraper.NewUserAgentPool(cfg.Scraper.UserAgentPool)

	return New(
		scraper.NewHTTPFetcher(&cfg.Scraper, agents, proxies, logger),
		scraper.NewRenderer(cfg, agents, proxies, logger),
		extraction.NewExtractor(&cfg.Extraction, logger),
		logger,
	), nil
}

// scrapeRun carries the transient data of one Scrape call
type scrapeRun struct {
	url       string
	html      string
	method    string
	candidate extraction.Candidate
	found     bool
	err       error
}

// Scrape drives the target through the fallback chain and always returns
// a reading; errors are reported in it, never returned
func (o *Orchestrator) Scrape(ctx context.Context, target models.ScrapeTarget) models.PriceReading {
	started := o.now()
	logger := o.Logger.With("url", target.URL, "shop", target.ShopLabel)

	ctx, span := tracer.Start(ctx, "engine.Scrape", trace.WithAttributes(
		attribute.String("url", target.URL),
		attribute.String("shop", target.ShopLabel),
	))
	defer span.End()

	run := &scrapeRun{}
	for st := stateStart; st != stateDone; {
		next := o.step(ctx, st, target, run, logger)
		logger.Debug("scrape transition", "from", st, "to", next)
		st = next
	}

	reading := o.reading(target, run, started)

	span.SetAttributes(
		attribute.String("method", reading.Method),
		attribute.Bool("available", reading.Available),
	)
	if run.err != nil {
		span.RecordError(run.err)
		span.SetStatus(codes.Error, reading.ErrorMessage)
	}

	if reading.Available {
		logger.Info("price found", "price", *reading.Price, "currency", reading.Currency,
			"method", reading.Method, "tier", reading.Tier, "took", reading.Duration)
	} else {
		logger.Info("price unavailable", "err", reading.ErrorMessage, "took", reading.Duration)
	}
	return reading
}

// step executes one state and returns the next
func (o *Orchestrator) step(ctx context.Context, st state, target models.ScrapeTarget, run *scrapeRun, logger *slog.Logger) state {
	switch st {
	case stateStart:
		raw := strings.TrimSpace(target.URL)
		if raw == "" {
			run.err = ErrMissingURL
			return stateDone
		}
		if !validURL(raw) {
			run.err = ErrInvalidURL
			return stateDone
		}
		run.url = raw
		return stateStaticFetch

	case stateStaticFetch:
		if ctx.Err() != nil {
			run.err = ErrCancelled
			return stateDone
		}
		html, err := o.Static.Fetch(ctx, run.url)
		if ctx.Err() != nil || scraper.IsCancelled(err) {
			run.err = ErrCancelled
			return stateDone
		}
		if err != nil {
			logger.Warn("static fetch failed", "err", err)
			return stateRenderFetch
		}
		run.html = html
		return stateStaticExtract

	case stateStaticExtract:
		if o.extract(run, target.CSSSelector, models.MethodStatic) {
			return stateDone
		}
		logger.Debug("no price in static html")
		return stateRenderFetch

	case stateRenderFetch:
		run.html = ""
		if ctx.Err() != nil {
			run.err = ErrCancelled
			return stateDone
		}
		html, err := o.Rendered.Fetch(ctx, run.url)
		if ctx.Err() != nil || scraper.IsCancelled(err) {
			run.err = ErrCancelled
			return stateDone
		}
		if err != nil {
			logger.Warn("rendered fetch failed", "err", err)
			run.err = err
			return stateDone
		}
		run.html = html
		return stateRenderExtract

	case stateRenderExtract:
		if !o.extract(run, target.CSSSelector, models.MethodRendered) {
			run.err = extraction.ErrNotFound
		}
		return stateDone
	}

	run.err = fmt.Errorf("unexpected state %s", st)
	return stateDone
}

func (o *Orchestrator) extract(run *scrapeRun, selector, method string) bool {
	c, err := o.Extractor.Extract(run.html, selector)
	if err != nil {
		return false
	}
	run.candidate = c
	run.found = true
	run.method = method
	run.err = nil
	return true
}

func (o *Orchestrator) reading(target models.ScrapeTarget, run *scrapeRun, started time.Time) models.PriceReading {
	finished := o.now()
	r := models.PriceReading{
		URL:        target.URL,
		ShopLabel:  target.ShopLabel,
		Currency:   o.defaultCurrency(),
		ObservedAt: finished,
		Duration:   finished.Sub(started),
	}
	if run.found {
		amount := run.candidate.Amount
		r.Price = &amount
		r.Currency = run.candidate.Currency
		r.Available = true
		r.Method = run.method
		r.Tier = run.candidate.Tier
		return r
	}
	if run.err == nil {
		run.err = extraction.ErrNotFound
	}
	r.ErrorMessage = run.err.Error()
	return r
}

func (o *Orchestrator) defaultCurrency() string {
	if o.Extractor != nil && o.Extractor.Config != nil && o.Extractor.Config.DefaultCurrency != "" {
		return o.Extractor.Config.DefaultCurrency
	}
	return models.DefaultCurrency
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// validURL accepts absolute http and https URLs with a host
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
