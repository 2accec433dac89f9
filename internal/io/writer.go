package io

import (
	"encoding/json"
	"fmt"
	stdio "io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/pkg/models"
)

// Output formats
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// ResultWriter writes batch reports to various outputs
type ResultWriter struct {
	Config *config.IOConfig
	Out    stdio.Writer
}

// NewResultWriter creates a new result writer; tables go to out
func NewResultWriter(cfg *config.IOConfig, out stdio.Writer) *ResultWriter {
	if out == nil {
		out = os.Stdout
	}
	return &ResultWriter{
		Config: cfg,
		Out:    out,
	}
}

// Write emits the reports in the configured format
func (w *ResultWriter) Write(reports []models.BatchReport) error {
	switch w.Config.OutputFormat {
	case FormatJSON:
		return w.SaveToFile(reports)
	case FormatTable, "":
		w.RenderTable(reports)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", w.Config.OutputFormat)
	}
}

// SaveToFile saves the reports to the configured output file as JSON
func (w *ResultWriter) SaveToFile(reports []models.BatchReport) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(w.Config.OutputFile, data, 0644)
}

// RenderTable prints one table per report with its summary as footer
func (w *ResultWriter) RenderTable(reports []models.BatchReport) {
	for _, report := range reports {
		t := table.NewWriter()
		t.SetOutputMirror(w.Out)
		if report.Product != "" {
			t.SetTitle(report.Product)
		}
		t.AppendHeader(table.Row{"Shop", "Price", "Currency", "Available", "Method", "Error"})

		for _, r := range report.Readings {
			t.AppendRow(table.Row{r.ShopLabel, FormatPrice(r.Price), r.Currency, r.Available, r.Method, r.ErrorMessage})
		}

		t.AppendFooter(table.Row{report.Summary()})
		t.SetStyle(table.StyleRounded)
		t.Render()
	}
}

// RenderReadings prints stored readings as a table
func (w *ResultWriter) RenderReadings(title string, readings []models.PriceReading) {
	t := table.NewWriter()
	t.SetOutputMirror(w.Out)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Observed", "Shop", "Price", "Currency", "Available", "Error"})
	for _, r := range readings {
		t.AppendRow(table.Row{r.ObservedAt.Format("2006-01-02 15:04"), r.ShopLabel,
			FormatPrice(r.Price), r.Currency, r.Available, r.ErrorMessage})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// FormatPrice renders an optional amount with two decimals
func FormatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
