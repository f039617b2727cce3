// Package cli provides common initialization for the firefly binaries.
// It consolidates the startup steps shared by cmd/firefly,
// cmd/firefly-worker and cmd/firefly-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"firefly/internal/backend"
	"firefly/internal/config"
	"firefly/internal/log"
	"firefly/internal/settings"
	"firefly/internal/sheets"
	gsheet "firefly/internal/sheets/google"
)

// SetupLogger builds the logger for component from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.ConfigFromEnv(component))
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadEnvFrom loads an explicitly requested env file; unlike LoadEnvFile a
// missing file is an error.
func LoadEnvFrom(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the configured data backend.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, err
	}
	logger.Info("Backend ready", "backend", bc.Type, "cache_size", bc.CacheSize)
	return res, nil
}

// MustOpenBackend is OpenBackend that exits the process on failure.
func MustOpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	res, err := OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// OpenSettings opens the bbolt settings file, or keeps settings in memory
// when no path is configured. The returned close func is never nil.
func OpenSettings(logger *log.Logger, cfg *config.Config, opts ...settings.Option) (settings.Store, func() error, error) {
	if cfg.SettingsDBPath == "" {
		logger.Info("Settings kept in memory", "currency", cfg.DefaultCurrency)
		return settings.NewStatic(cfg.DefaultCurrency), func() error { return nil }, nil
	}
	st, err := settings.Open(cfg.SettingsDBPath, cfg.DefaultCurrency, opts...)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Settings store opened", "path", cfg.SettingsDBPath)
	return st, st.Close, nil
}

// SheetsExporter returns the Google Sheets exporter, or nil when the export
// is not configured.
func SheetsExporter(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.TransactionExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets export disabled")
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
