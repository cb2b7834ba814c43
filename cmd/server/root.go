package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/config"
	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/logger"
	"github.com/iliyamo/neststay/internal/metrics"
)

var rootCmd = &cobra.Command{
	Use:          "neststay",
	Short:        "Hotel booking inventory service",
	SilenceUsage: true,
	// Running the binary without a subcommand serves the API.
	RunE: func(cmd *cobra.Command, args []string) error { return runServe(cmd.Context()) },
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config and builds the logger every command needs.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: metrics.Service,
		Env:     cfg.Env,
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openDB connects to the configured store and applies migrations.
func openDB(cfg config.Config, log *zap.Logger) (*database.DB, error) {
	db, err := database.Open(database.Options{
		Driver:       cfg.DB.Driver,
		User:         cfg.DB.User,
		Pass:         cfg.DB.Pass,
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		Name:         cfg.DB.Name,
		Path:         cfg.DB.Path,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready", zap.String("driver", db.Dialect.Name))
	return db, nil
}
