package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"firefly/internal/bank"
	"firefly/internal/core"
	"firefly/internal/log"
	"firefly/internal/ports"
)

// DefaultSyncInterval separates successful syncs when no schedule is configured.
const DefaultSyncInterval = 15 * time.Minute

// SyncPublisher queues a sync request for the worker.
type SyncPublisher interface {
	PublishBankSync(ctx context.Context, connectionID int64, attempt int) (string, error)
}

// SyncOutcome reports what a sync run did.
type SyncOutcome struct {
	Connection core.BankConnection
	Created    int
	// Err is the sync failure recorded on the connection, if any.
	Err error
}

// BankService manages bank connections and runs their syncs.
type BankService struct {
	backend   ports.Backend
	publisher SyncPublisher
	mock      bank.MockBank
	interval  time.Duration
	now       func() time.Time

	// mu serialises status read-modify-write cycles within this process.
	mu sync.Mutex
}

type BankOption func(*BankService)

// WithPublisher hands sync requests to a queue instead of running them inline.
func WithPublisher(p SyncPublisher) BankOption {
	return func(s *BankService) { s.publisher = p }
}

// WithSyncInterval sets the delay before the next scheduled sync.
func WithSyncInterval(d time.Duration) BankOption {
	return func(s *BankService) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBankClock(now func() time.Time) BankOption {
	return func(s *BankService) { s.now = now }
}

func WithMockBank(m bank.MockBank) BankOption {
	return func(s *BankService) { s.mock = m }
}

func NewBankService(backend ports.Backend, opts ...BankOption) *BankService {
	s := &BankService{
		backend:  backend,
		mock:     bank.DefaultMockBank,
		interval: DefaultSyncInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create links a new connection. An empty type means the mock bank.
func (s *BankService) Create(ctx context.Context, name, connectionType string) (core.BankConnection, error) {
	if connectionType == "" {
		connectionType = core.MockBankConnection
	}
	c := core.BankConnection{Name: name, ConnectionType: connectionType}
	if err := c.Validate(); err != nil {
		return core.BankConnection{}, invalid(err)
	}
	id, err := s.backend.CreateBankConnection(ctx, name, connectionType)
	if err != nil {
		return core.BankConnection{}, fmt.Errorf("create bank connection: %w", err)
	}
	return s.backend.GetBankConnection(ctx, id)
}

func (s *BankService) List(ctx context.Context) ([]core.BankConnection, error) {
	return s.backend.ListBankConnections(ctx)
}

func (s *BankService) Get(ctx context.Context, id int64) (core.BankConnection, error) {
	return s.backend.GetBankConnection(ctx, id)
}

func (s *BankService) Delete(ctx context.Context, id int64) error {
	return s.backend.DeleteBankConnection(ctx, id)
}

// RequestSync marks the connection in progress and queues the sync. Without a
// publisher, or when publishing fails, the sync runs inline.
func (s *BankService) RequestSync(ctx context.Context, id int64) (core.BankConnection, error) {
	c, err := s.start(ctx, id)
	if err != nil {
		return core.BankConnection{}, err
	}

	if s.publisher != nil {
		msgID, err := s.publisher.PublishBankSync(ctx, id, c.RetryAttempts+1)
		if err == nil {
			slog.InfoContext(ctx, "Bank sync queued",
				log.FieldComponent, log.ComponentBank,
				log.FieldConnectionID, id,
				log.FieldMessageID, msgID)
			return c, nil
		}
		slog.WarnContext(ctx, "Failed to queue bank sync, running inline",
			log.FieldConnectionID, id, log.FieldError, err)
	}

	out, err := s.RunSync(ctx, id)
	if err != nil {
		return core.BankConnection{}, err
	}
	return out.Connection, nil
}

func (s *BankService) start(ctx context.Context, id int64) (core.BankConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.backend.GetBankConnection(ctx, id)
	if err != nil {
		return core.BankConnection{}, err
	}
	next, err := bank.Transition(c.Status, bank.Start{})
	if err != nil {
		return core.BankConnection{}, fmt.Errorf("connection %d: %w", id, err)
	}
	c.Status = next
	if err := s.backend.UpdateBankConnection(ctx, c); err != nil {
		return core.BankConnection{}, fmt.Errorf("mark sync started: %w", err)
	}
	return c, nil
}

// RunSync performs a sync that RequestSync started: it fetches from the mock
// bank, submits the batch and records lastSynced or syncError. A connection
// that is not in progress, such as one whose message was redelivered after it
// finished, is returned unchanged. Only backend failures are returned as errors.
func (s *BankService) RunSync(ctx context.Context, id int64) (SyncOutcome, error) {
	c, err := s.backend.GetBankConnection(ctx, id)
	if err != nil {
		return SyncOutcome{}, err
	}
	if _, running := c.Status.(core.StatusInProgress); !running {
		slog.InfoContext(ctx, "Skipping sync, connection not in progress",
			log.FieldConnectionID, id, "status", core.StatusKind(c.Status))
		return SyncOutcome{Connection: c}, nil
	}

	now := s.now()
	created, syncErr := s.fetch(ctx, id, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reload so concurrent edits to sync fields are not lost.
	if c, err = s.backend.GetBankConnection(ctx, id); err != nil {
		return SyncOutcome{}, err
	}
	var ev bank.Event = bank.Succeed{At: now.UnixMilli()}
	if syncErr != nil {
		ev = bank.Fail{Message: syncErr.Error(), At: now.UnixMilli()}
	}
	next, err := bank.Transition(c.Status, ev)
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("connection %d: %w", id, err)
	}
	c.Status = next
	if syncErr != nil {
		c.RetryAttempts++
	} else {
		c.RetryAttempts = 0
		c.LastSync = now.UnixMilli()
	}
	c.NextSync = bank.NextSync(now, s.interval, c.RetryAttempts).UnixMilli()

	if err := s.backend.UpdateBankConnection(ctx, c); err != nil {
		return SyncOutcome{}, fmt.Errorf("record sync result: %w", err)
	}

	if syncErr != nil {
		slog.WarnContext(ctx, "Bank sync failed",
			log.FieldComponent, log.ComponentBank,
			log.FieldConnectionID, id,
			log.FieldRetryAttempts, c.RetryAttempts,
			log.FieldError, syncErr)
	} else {
		slog.InfoContext(ctx, "Bank sync completed",
			log.FieldComponent, log.ComponentBank,
			log.FieldConnectionID, id,
			log.FieldCreated, created)
	}
	return SyncOutcome{Connection: c, Created: created, Err: syncErr}, nil
}

func (s *BankService) fetch(ctx context.Context, id int64, now time.Time) (int, error) {
	snap, err := LoadSnapshot(ctx, s.backend, Accounts|Categories)
	if err != nil {
		return 0, err
	}
	batch, err := s.mock.Fetch(id, now, snap.Accounts, snap.Categories)
	if err != nil {
		return 0, err
	}
	ids, err := s.backend.CreateTransactionsFromRows(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("store synced transactions: %w", err)
	}
	return len(ids), nil
}

// DueConnections lists connections whose scheduled sync has come.
func (s *BankService) DueConnections(ctx context.Context, maxRetries int) ([]core.BankConnection, error) {
	conns, err := s.backend.ListBankConnections(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var due []core.BankConnection
	for _, c := range conns {
		if bank.Due(c, now, maxRetries) {
			due = append(due, c)
		}
	}
	return due, nil
}

// IsSyncConflict reports whether err means a sync is already running.
func IsSyncConflict(err error) bool {
	return errors.Is(err, bank.ErrSyncInProgress)
}
