package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"firefly/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/x.db",
		Timezone:     "UTC",
		CacheSize:    10,
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.CacheSize != 10 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Location == nil || cfg.Location != time.UTC {
		t.Errorf("location = %v", cfg.Location)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "unknown type", cfg: Config{Type: "csv"}, wantErr: "invalid backend type"},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "SQLite database path"},
		{name: "negative cache", cfg: Config{Type: MemoryBackend, CacheSize: -1}, wantErr: "cache size"},
		{name: "cache without ttl", cfg: Config{Type: MemoryBackend, CacheSize: 5}, wantErr: "cache TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("types = %v", got)
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	mem, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, CacheSize: 10, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := mem.Backend.(*Cached); !ok {
		t.Errorf("expected cached backend, got %T", mem.Backend)
	}
	accounts, err := mem.Backend.ListAccounts(ctx)
	if err != nil || len(accounts) == 0 {
		t.Errorf("expected seeded accounts, got %v %v", accounts, err)
	}
	if err := mem.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	sqlite, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "firefly.db")})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer sqlite.Close()
	if sqlite.Ping == nil || sqlite.Ping(ctx) != nil {
		t.Error("sqlite backend should be pingable")
	}
	if _, ok := sqlite.Backend.(*Cached); ok {
		t.Error("cache should be off when CacheSize is 0")
	}
}
