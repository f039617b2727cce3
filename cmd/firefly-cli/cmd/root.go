// Package cmd provides the firefly-cli commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"firefly/internal/backend"
	"firefly/internal/cli"
	"firefly/internal/config"
	"firefly/internal/format"
	"firefly/internal/log"
	"firefly/internal/settings"
)

var (
	envFile string
	debug   bool
)

// settingsLockTimeout keeps commands responsive while the server holds the
// settings file.
const settingsLockTimeout = 300 * time.Millisecond

// app is what every subcommand works against. The backend is opened before a
// subcommand runs; settings are opened on first use. Execute closes both.
var app struct {
	logger   *log.Logger
	cfg      *config.Config
	backend  *backend.BackendResult
	settings settings.Store
	closeSt  func() error
	format   format.Formatter
}

var rootCmd = &cobra.Command{
	Use:   "firefly-cli",
	Short: "Manage firefly data from the command line",
	Long: `firefly-cli works directly against the configured data backend
(DATA_BACKEND, SQLITE_DB_PATH) without going through the HTTP API.

Example:
  firefly-cli import transactions.csv --create-tags
  firefly-cli budget status --month 2025-03
  firefly-cli report run 4`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := cli.LoadEnvFrom(envFile); err != nil {
				return err
			}
		} else {
			cli.LoadEnvFile()
		}

		cfg := log.ConfigFromEnv(log.ComponentCLI)
		cfg.Output = os.Stderr
		if debug {
			cfg.Level = log.ParseLevel("debug")
		}
		app.logger = log.New(cfg)
		log.SetDefault(app.logger)

		app.cfg = config.Load()
		if err := app.cfg.Validate(); err != nil {
			return err
		}
		res, err := cli.OpenBackend(cmd.Context(), app.logger, app.cfg)
		if err != nil {
			return fmt.Errorf("open backend: %w", err)
		}
		app.backend = res

		app.format = format.Formatter{Preference: &preference{}, Location: app.cfg.Location()}
		return nil
	},
}

// openSettings opens the settings store once.
func openSettings() (settings.Store, error) {
	if app.settings != nil {
		return app.settings, nil
	}
	st, closeSt, err := cli.OpenSettings(app.logger, app.cfg, settings.WithLockTimeout(settingsLockTimeout))
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	app.settings, app.closeSt = st, closeSt
	return st, nil
}

// preference reads the preferred currency on first use. When the settings
// file is unavailable, amounts are formatted in the default currency.
type preference struct {
	once     sync.Once
	currency string
}

func (p *preference) PreferredCurrency() string {
	p.once.Do(func() {
		p.currency = app.cfg.DefaultCurrency
		st, err := openSettings()
		if err != nil {
			app.logger.Warn("Using default currency", "currency", p.currency, log.FieldError, err)
			return
		}
		p.currency = st.PreferredCurrency()
	})
	return p.currency
}

// closeApp releases whatever PersistentPreRunE and the command opened. It
// runs even when the command fails.
func closeApp() {
	if app.closeSt != nil {
		if err := app.closeSt(); err != nil && app.logger != nil {
			app.logger.Warn("Failed to close settings", log.FieldError, err)
		}
		app.settings, app.closeSt = nil, nil
	}
	if app.backend != nil {
		if err := app.backend.Close(); err != nil && app.logger != nil {
			app.logger.Warn("Failed to close backend", log.FieldError, err)
		}
		app.backend = nil
	}
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	defer closeApp()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(importCmd, exportCmd, budgetCmd, reportCmd, settingsCmd)
}
