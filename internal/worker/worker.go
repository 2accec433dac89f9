package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/williampepple1/pricewatch/internal/engine"
	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/pkg/models"
)

// Runner scrapes the links of one batch one at a time, pausing between
// scrapes so a shop never sees back-to-back requests
type Runner struct {
	Scraper engine.Scraper
	Delay   time.Duration
	Logger  *slog.Logger
	// Currency is stamped on readings produced by a recovered panic.
	Currency string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewRunner creates a new batch runner
func NewRunner(s engine.Scraper, delay time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		Scraper:  s,
		Delay:    delay,
		Logger:   logging.OrDefault(logger),
		Currency: models.DefaultCurrency,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Run returns one reading per target, in input order. A failing or
// panicking target never stops the batch.
func (r *Runner) Run(ctx context.Context, targets []models.ScrapeTarget) models.BatchReport {
	report := models.BatchReport{
		ID:        uuid.NewString(),
		Readings:  make([]models.PriceReading, 0, len(targets)),
		StartedAt: r.now(),
	}
	logger := r.Logger.With("batch", report.ID)
	logger.Info("batch started", "targets", len(targets))

	for i, target := range targets {
		if i > 0 && r.Delay > 0 && ctx.Err() == nil {
			r.sleep(ctx, r.Delay)
		}
		report.Readings = append(report.Readings, r.scrapeOne(ctx, target, logger))
	}

	report.FinishedAt = r.now()
	report.Tally()
	logger.Info("batch finished", "summary", report.Summary(), "took", report.FinishedAt.Sub(report.StartedAt))
	return report
}

// scrapeOne converts a panic in the scrape chain into a failed reading
func (r *Runner) scrapeOne(ctx context.Context, target models.ScrapeTarget, logger *slog.Logger) (reading models.PriceReading) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("scrape panicked", "url", target.URL, "shop", target.ShopLabel,
				"panic", rec, "stack", string(debug.Stack()))
			reading = models.PriceReading{
				URL:          target.URL,
				ShopLabel:    target.ShopLabel,
				Currency:     r.Currency,
				ErrorMessage: fmt.Sprintf("internal error: %v", rec),
				ObservedAt:   r.now(),
			}
		}
	}()
	return r.Scraper.Scrape(ctx, target)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
