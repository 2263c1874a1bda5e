package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/storage"
	"github.com/xaenox/sentia/pkg/config"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "sentia",
		Short:        "Emotion classification for employee self-reports",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file loaded before the environment is read")

	cmd.AddCommand(newServeCmd(opts), newClassifyCmd(opts))
	return cmd
}

// load reads the .env file and the configuration and builds the logger.
func load(opts *options) (*config.Config, *zap.Logger, error) {
	if err := config.LoadEnv(opts.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func openStorage(cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(cfg.Postgres(), logger)
	case config.DriverSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Path))
		return storage.NewSQLiteStorage(cfg.Path, logger)
	default:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}

// externalClassifier returns nil when no API key is configured. The local
// model answers whenever the external one fails.
func externalClassifier(cfg config.OpenAIConfig, local classifier.Classifier, logger *zap.Logger) classifier.Classifier {
	if !cfg.Enabled() {
		return nil
	}
	return classifier.NewGPTClassifier(cfg.GPT(), local, logger)
}
