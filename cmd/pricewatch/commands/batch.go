package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/williampepple1/pricewatch/internal/engine"
	"github.com/williampepple1/pricewatch/internal/io"
	"github.com/williampepple1/pricewatch/internal/store"
	"github.com/williampepple1/pricewatch/internal/worker"
	"github.com/williampepple1/pricewatch/pkg/models"
)

var (
	batchInput   *string
	batchOutput  *string
	batchFormat  *string
	batchWorkers *int
)

func init() {
	batchInput = batchCmd.Flags().String("input", "", "Targets file (YAML products list, or one URL per line)")
	batchOutput = batchCmd.Flags().String("output", "", "File to save JSON readings to")
	batchFormat = batchCmd.Flags().String("format", "", "Output format: table or json")
	batchWorkers = batchCmd.Flags().Int("workers", 0, "Number of products scraped concurrently")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [--input <targets.yaml>] [--format table|json]",
	Short: "Scrapes every shop link of every product in a targets file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if *batchInput != "" {
			appConfig.IO.InputFile = *batchInput
		}
		if *batchOutput != "" {
			appConfig.IO.OutputFile = *batchOutput
		}
		if *batchFormat != "" {
			appConfig.IO.OutputFormat = *batchFormat
		}
		if *batchWorkers > 0 {
			appConfig.Scraper.Workers = *batchWorkers
		}

		products, err := io.NewTargetReader(&appConfig.IO).GetProducts()
		if err != nil {
			return fmt.Errorf("read targets: %w", err)
		}
		if len(products) == 0 {
			return errors.New("no targets to scrape")
		}

		orchestrator, err := engine.NewFromConfig(appConfig, logger)
		if err != nil {
			return err
		}
		runner := worker.NewRunner(orchestrator, appConfig.Scraper.InterRequestDelay(), logger)
		runner.Currency = appConfig.Extraction.DefaultCurrency

		logger.Info("scraping products", "products", len(products), "workers", appConfig.Scraper.Workers)
		reports := worker.NewPool(runner, appConfig.Scraper.Workers, logger).Run(cmd.Context(), products)

		if err := io.NewResultWriter(&appConfig.IO, os.Stdout).Write(reports); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		if appConfig.IO.OutputFormat == io.FormatJSON {
			logger.Info("results saved", "file", appConfig.IO.OutputFile)
		}
		return persist(cmd, products, reports)
	},
}

// persist records the reports when a store is configured
func persist(cmd *cobra.Command, products []models.Product, reports []models.BatchReport) error {
	if appConfig.Store.Path == "" {
		return nil
	}
	db, err := store.Open(appConfig.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	for i, report := range reports {
		if err := db.RecordBatch(cmd.Context(), products[i], report); err != nil {
			return fmt.Errorf("store batch %s: %w", report.ID, err)
		}
	}
	logger.Debug("readings stored", "path", appConfig.Store.Path, "batches", len(reports))
	return nil
}
