package worker

import (
	"context"
	"log/slog"

	"github.com/williampepple1/pricewatch/internal/logging"
	"github.com/williampepple1/pricewatch/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Pool runs the batches of several products concurrently. Links of the
// same product stay sequential inside their Runner.
type Pool struct {
	Runner  *Runner
	Workers int
	Logger  *slog.Logger
}

// NewPool creates a new pool bounded to workers concurrent batches
func NewPool(runner *Runner, workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		Runner:  runner,
		Workers: workers,
		Logger:  logging.OrDefault(logger),
	}
}

// Run returns one report per product, in input order
func (p *Pool) Run(ctx context.Context, products []models.Product) []models.BatchReport {
	reports := make([]models.BatchReport, len(products))

	var g errgroup.Group
	g.SetLimit(p.Workers)

	for i, product := range products {
		g.Go(func() error {
			p.Logger.Debug("worker picked product", "product", product.Name, "links", len(product.Links))
			report := p.Runner.Run(ctx, product.Links)
			report.Product = product.Name
			reports[i] = report
			return nil
		})
	}

	_ = g.Wait()
	return reports
}
