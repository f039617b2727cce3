package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"firefly/internal/amqp"
	"firefly/internal/cli"
	apphttp "firefly/internal/http"
	"firefly/internal/log"
	"firefly/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	res := cli.MustOpenBackend(ctx, logger, cfg)
	defer res.Close()

	prefs, closeSettings, err := cli.OpenSettings(logger, cfg)
	if err != nil {
		logger.Error("Failed to open settings store", log.FieldError, err, "path", cfg.SettingsDBPath)
		os.Exit(1)
	}
	defer closeSettings()

	exporter, err := cli.SheetsExporter(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	bankOpts := []services.BankOption{services.WithSyncInterval(cfg.SyncInterval())}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Syncs run inline until the broker is reachable again.
			logger.Warn("AMQP unavailable, bank syncs will run inline", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			bankOpts = append(bankOpts, services.WithPublisher(amqpClient))
			logger.Info("Bank syncs queued over AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Backend:            res.Backend,
		Settings:           prefs,
		Bank:               services.NewBankService(res.Backend, bankOpts...),
		Exporter:           exporter,
		Location:           cfg.Location(),
		Logger:             logger,
		Ready:              res.Ping,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting firefly server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
