package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"firefly/internal/amqp"
	"firefly/internal/cli"
	"firefly/internal/log"
	"firefly/internal/services"
	"firefly/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("Starting firefly-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process; the server will not see these syncs")
	}
	res := cli.MustOpenBackend(ctx, logger, cfg)
	defer res.Close()

	bankOpts := []services.BankOption{services.WithSyncInterval(cfg.SyncInterval())}

	// Without a broker the scheduled syncs run inline.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		bankOpts = append(bankOpts, services.WithPublisher(amqpClient))
	} else {
		logger.Info("AMQP disabled - scheduled syncs will run inline")
	}

	syncWorker := worker.NewBankSyncWorker(services.NewBankService(res.Backend, bankOpts...), cfg.BankSyncMaxRetries)

	// On startup, finish syncs a previous run left in progress
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeBankSync(ctx, syncWorker.HandleSyncMessage); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
				cancel()
			}
		}()
	}

	scheduler, err := syncWorker.Schedule(ctx, cfg.BankSyncSchedule)
	if err != nil {
		logger.Error("Failed to schedule bank syncs", log.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Bank sync scheduler started",
		"schedule", cfg.BankSyncSchedule,
		"max_retries", cfg.BankSyncMaxRetries)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	// Wait for a running scheduled pass to finish
	<-scheduler.Stop().Done()
	logger.Info("Worker stopped gracefully")
}
