// Package settings persists user preferences. The bbolt store keeps a single
// JSON document; Static is an in-process stand-in.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"firefly/internal/core"
	"firefly/internal/format"
)

var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	// ErrLocked means another process, usually the server, holds the file.
	ErrLocked = errors.New("settings database is locked by another process")
)

// DefaultLockTimeout is how long Open waits for the file lock.
const DefaultLockTimeout = 2 * time.Second

// Option configures Open.
type Option func(*bolt.Options)

// WithLockTimeout bounds the wait for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *bolt.Options) { o.Timeout = d }
}

const (
	bucketSettings = "settings"
	keyUser        = "user"
)

// Store reads and writes the user's settings. PreferredCurrency never fails;
// it falls back to the default currency.
type Store interface {
	Get(ctx context.Context) (core.UserSettings, error)
	Put(ctx context.Context, s core.UserSettings) error
	PreferredCurrency() string
}

var (
	_ Store                     = (*BoltStore)(nil)
	_ Store                     = (*Static)(nil)
	_ format.CurrencyPreference = (*BoltStore)(nil)
)

// Normalize upper-cases the currency, defaulting blanks to fallback, and
// rejects codes that are not ISO 4217.
func Normalize(s core.UserSettings, fallback string) (core.UserSettings, error) {
	code := strings.ToUpper(strings.TrimSpace(s.Currency))
	if code == "" {
		code = fallback
	}
	if !format.IsValidCurrency(code) {
		return s, fmt.Errorf("%q: %w", s.Currency, ErrInvalidCurrency)
	}
	s.Currency = code
	return s, nil
}

// SetCurrency validates code and stores it, keeping the other settings.
func SetCurrency(ctx context.Context, st Store, code string) (core.UserSettings, error) {
	if strings.TrimSpace(code) == "" {
		return core.UserSettings{}, fmt.Errorf("empty code: %w", ErrInvalidCurrency)
	}
	cur, err := st.Get(ctx)
	if err != nil {
		return core.UserSettings{}, err
	}
	cur.Currency = code
	if err := st.Put(ctx, cur); err != nil {
		return core.UserSettings{}, err
	}
	return st.Get(ctx)
}

// BoltStore keeps settings in a bbolt file.
type BoltStore struct {
	db       *bolt.DB
	fallback string
}

// Open creates or opens the settings file. fallback is the currency used
// until one is stored. bbolt locks the file for the life of the store, so a
// second process gets ErrLocked once the lock timeout passes.
func Open(path, fallback string, opts ...Option) (*BoltStore, error) {
	if fallback == "" {
		fallback = format.DefaultCurrency
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}
	boltOpts := &bolt.Options{Timeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(boltOpts)
	}
	db, err := bolt.Open(path, 0o600, boltOpts)
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("open settings database %s: %w", path, ErrLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSettings))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create settings bucket: %w", err)
	}
	return &BoltStore{db: db, fallback: strings.ToUpper(fallback)}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(_ context.Context) (core.UserSettings, error) {
	out := core.UserSettings{Currency: s.fallback}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketSettings)).Get([]byte(keyUser))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("read settings: %w", err)
	}
	if out.Currency == "" {
		out.Currency = s.fallback
	}
	return out, nil
}

func (s *BoltStore) Put(_ context.Context, us core.UserSettings) error {
	us, err := Normalize(us, s.fallback)
	if err != nil {
		return err
	}
	data, err := json.Marshal(us)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSettings)).Put([]byte(keyUser), data)
	})
}

func (s *BoltStore) PreferredCurrency() string {
	us, err := s.Get(context.Background())
	if err != nil {
		slog.Warn("Falling back to default currency", "error", err)
		return s.fallback
	}
	return us.Currency
}

// Static holds settings in memory.
type Static struct {
	mu       sync.RWMutex
	settings core.UserSettings
}

func NewStatic(currency string) *Static {
	if currency == "" {
		currency = format.DefaultCurrency
	}
	return &Static{settings: core.UserSettings{Currency: strings.ToUpper(currency)}}
}

func (s *Static) Get(_ context.Context) (core.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Static) Put(_ context.Context, us core.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	us, err := Normalize(us, s.settings.Currency)
	if err != nil {
		return err
	}
	s.settings = us
	return nil
}

func (s *Static) PreferredCurrency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Currency
}
