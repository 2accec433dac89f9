package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/williampepple1/pricewatch/internal/engine"
	"github.com/williampepple1/pricewatch/internal/io"
	"github.com/williampepple1/pricewatch/internal/worker"
	"github.com/williampepple1/pricewatch/pkg/models"
)

var (
	scrapeSelector *string
	scrapeShop     *string
	scrapeProduct  *string
	scrapeFormat   *string
)

func init() {
	scrapeSelector = scrapeCmd.Flags().String("selector", "", "CSS selector of the price element")
	scrapeShop = scrapeCmd.Flags().String("shop", "", "Shop label (defaults to the URL host)")
	scrapeProduct = scrapeCmd.Flags().String("product", io.DefaultProduct, "Product the link is stored under")
	scrapeFormat = scrapeCmd.Flags().String("format", "", "Output format: table or json")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url> [--selector <css>] [--shop <label>]",
	Short: "Scrapes the price of a single product page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := models.ScrapeTarget{
			URL:         args[0],
			CSSSelector: *scrapeSelector,
			ShopLabel:   *scrapeShop,
		}
		if target.ShopLabel == "" {
			target.ShopLabel = io.ShopFromURL(target.URL)
		}

		orchestrator, err := engine.NewFromConfig(appConfig, logger)
		if err != nil {
			return err
		}
		runner := worker.NewRunner(orchestrator, 0, logger)
		runner.Currency = appConfig.Extraction.DefaultCurrency

		product := models.Product{Name: *scrapeProduct, Links: []models.ScrapeTarget{target}}
		report := runner.Run(cmd.Context(), product.Links)
		report.Product = product.Name

		if *scrapeFormat != "" {
			appConfig.IO.OutputFormat = *scrapeFormat
		}
		reports := []models.BatchReport{report}
		if err := io.NewResultWriter(&appConfig.IO, os.Stdout).Write(reports); err != nil {
			return err
		}
		return persist(cmd, []models.Product{product}, reports)
	},
}
