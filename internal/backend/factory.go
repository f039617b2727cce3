package backend

import (
	"context"
	"fmt"
	"log/slog"

	"firefly/internal/cache"
	"firefly/internal/ports"
	"firefly/internal/ports/memory"
	"firefly/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. The store is wrapped in a
// read cache unless config.CacheSize is 0.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.CacheSize > 0 {
		f.wrapCache(res, config)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, storage.WithLocation(config.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
		Ping:    repo.Ping,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	var opts []memory.Option
	if config.Location != nil {
		opts = append(opts, memory.WithLocation(config.Location))
	}

	store, err := memory.NewFromFile(config.SeedFile, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{
		Backend: store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

func (f *DefaultFactory) wrapCache(res *BackendResult, config Config) {
	qc := cache.NewQueryCache[any](config.CacheSize, config.CacheTTL, cache.DefaultInvalidations)
	manager := cache.NewManager()
	manager.Register(qc)
	manager.StartCleanup(config.CacheTTL)

	// A SQLite file is shared with the worker, whose writes this cache never
	// sees. The memory store lives in one process only.
	var opts []CachedOption
	if config.Type == SQLiteBackend {
		opts = append(opts, WithReadThrough(SharedKeys...))
	}

	inner := res.Backend
	res.Backend = NewCached(inner, qc, opts...)

	cleanup := res.Cleanup
	res.Cleanup = func() error {
		manager.Stop()
		if cleanup != nil {
			return cleanup()
		}
		return nil
	}

	f.logger.Info("Enabled backend read cache", "size", config.CacheSize, "ttl", config.CacheTTL)
}

var _ ports.Backend = (*Cached)(nil)
