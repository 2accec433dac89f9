package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/williampepple1/pricewatch/internal/config"
	"github.com/williampepple1/pricewatch/internal/logging"
)

var (
	configFile *string
	logLevel   *string

	appConfig *config.AppConfig
	logger    *slog.Logger
)

func init() {
	configFile = rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML)")
	logLevel = rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

var rootCmd = &cobra.Command{
	Use:           "pricewatch",
	Short:         "pricewatch tracks product prices across online shops.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		var err error
		if *configFile != "" {
			appConfig, err = config.Load(*configFile)
		} else {
			appConfig, err = config.FromEnv()
		}
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		if *logLevel != "" {
			appConfig.Log.Level = *logLevel
		}
		logger = logging.Setup(os.Stderr, appConfig.Log.Level)
		if *configFile != "" {
			logger.Debug("loaded configuration", "file", *configFile)
		}
		return nil
	},
}

// ExecuteContext runs the CLI and exits non-zero on failure
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
