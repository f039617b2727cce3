package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"firefly/internal/amqp"
	"firefly/internal/core"
	"firefly/internal/log"
	"firefly/internal/services"
)

// BankSyncWorker runs queued bank syncs and schedules periodic ones.
type BankSyncWorker struct {
	bank       *services.BankService
	maxRetries int
}

func NewBankSyncWorker(bank *services.BankService, maxRetries int) *BankSyncWorker {
	return &BankSyncWorker{bank: bank, maxRetries: maxRetries}
}

// HandleSyncMessage processes a single bank sync message from AMQP. Returning
// an error requeues the message, so sync failures that were recorded on the
// connection and messages for deleted connections are acknowledged.
func (w *BankSyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BankSyncMessage) error {
	slog.InfoContext(ctx, "Processing bank sync message",
		log.FieldMessageID, msg.MessageID,
		log.FieldConnectionID, msg.ConnectionID,
		"attempt", msg.Attempt)

	out, err := w.bank.RunSync(ctx, msg.ConnectionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Dropping sync for deleted connection",
			log.FieldConnectionID, msg.ConnectionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("run bank sync: %w", err)
	}
	if out.Err != nil {
		slog.WarnContext(ctx, "Bank sync recorded as failed",
			log.FieldConnectionID, msg.ConnectionID,
			log.FieldRetryAttempts, out.Connection.RetryAttempts)
	}
	return nil
}

// RequestDueSyncs starts a sync for every connection whose schedule has come
// and that has retries left. It returns how many syncs were requested.
func (w *BankSyncWorker) RequestDueSyncs(ctx context.Context) (int, error) {
	due, err := w.bank.DueConnections(ctx, w.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("list due connections: %w", err)
	}

	requested := 0
	for _, c := range due {
		if _, err := w.bank.RequestSync(ctx, c.ID); err != nil {
			if services.IsSyncConflict(err) {
				continue
			}
			slog.ErrorContext(ctx, "Failed to request scheduled sync",
				log.FieldConnectionID, c.ID, log.FieldError, err)
			continue
		}
		requested++
	}

	if requested > 0 {
		slog.InfoContext(ctx, "Scheduled bank syncs requested", "count", requested, "due", len(due))
	}
	return requested, nil
}

// StartupSyncCheck finishes syncs left in progress by a previous run, which
// would otherwise never be due again.
func (w *BankSyncWorker) StartupSyncCheck(ctx context.Context) error {
	conns, err := w.bank.List(ctx)
	if err != nil {
		return fmt.Errorf("list connections for startup check: %w", err)
	}

	resumed := 0
	for _, c := range conns {
		if _, running := c.Status.(core.StatusInProgress); !running {
			continue
		}
		if _, err := w.bank.RunSync(ctx, c.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to resume sync during startup",
				log.FieldConnectionID, c.ID, log.FieldError, err)
			continue
		}
		resumed++
	}

	if resumed == 0 {
		slog.InfoContext(ctx, "No interrupted bank syncs found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Resumed interrupted bank syncs", "count", resumed)
	return nil
}

// Schedule registers RequestDueSyncs on the cron spec. The caller starts and
// stops the returned scheduler; overlapping runs are skipped.
func (w *BankSyncWorker) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := w.RequestDueSyncs(ctx); err != nil {
			slog.ErrorContext(ctx, "Periodic bank sync failed", log.FieldError, err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}
