package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/williampepple1/pricewatch/internal/io"
	"github.com/williampepple1/pricewatch/internal/store"
	"github.com/williampepple1/pricewatch/pkg/models"
)

var (
	historyLink  *int64
	historyLimit *int
)

func init() {
	historyLink = historyCmd.Flags().Int64("link", 0, "Show the history of one link instead of the latest prices")
	historyLimit = historyCmd.Flags().Int("limit", 20, "Maximum number of readings for --link")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <product> [--link <id>] [--limit <n>]",
	Short: "Prints stored prices of a product.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.Store.Path == "" {
			return errors.New("store.path is not configured")
		}
		db, err := store.Open(appConfig.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		var (
			entries []store.Entry
			title   string
		)
		if *historyLink != 0 {
			entries, err = db.History(cmd.Context(), *historyLink, *historyLimit)
			title = fmt.Sprintf("%s: link %d", args[0], *historyLink)
		} else {
			entries, err = db.Latest(cmd.Context(), args[0])
			title = fmt.Sprintf("%s: latest prices", args[0])
		}
		if err != nil {
			return err
		}

		readings := make([]models.PriceReading, len(entries))
		for i, e := range entries {
			readings[i] = e.Reading
		}
		io.NewResultWriter(&appConfig.IO, os.Stdout).RenderReadings(title, readings)
		return nil
	},
}
