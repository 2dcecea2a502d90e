package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/solatis/lifter/internal/core/config"
	"github.com/solatis/lifter/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "lifter",
	Short:        "Lifter lazy query engine",
	Long:         `Lifter runs filter, ordering, projection and aggregate queries over documents, REST APIs and SQL tables, with result caching.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("db-url") && cfg.Cache.Backend == config.CacheSQL {
		cfg.Cache.DBURL = dbURL
	}

	log, err := logger.New(os.Stderr, cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
