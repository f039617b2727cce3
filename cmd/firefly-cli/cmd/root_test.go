package cmd

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"firefly/internal/settings"
)

// runCLI executes the command tree the way main does and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute()
	return out.String(), err
}

// lockedSettings holds the settings file open, as a running server does.
func lockedSettings(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.db")
	held, err := settings.Open(path, "USD")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { held.Close() })

	t.Setenv("SETTINGS_DB_PATH", path)
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("LOG_LEVEL", "error")
}

func TestBudgetStatusRunsWhileSettingsAreLocked(t *testing.T) {
	lockedSettings(t)

	out, err := runCLI(t, "budget", "status", "--month", "2025-03")
	if err != nil {
		t.Fatalf("budget status error = %v", err)
	}
	if !strings.Contains(out, "Budget for 2025-03") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "€") {
		t.Errorf("expected amounts in the default currency, got %q", out)
	}
	if app.backend != nil || app.settings != nil {
		t.Error("backend and settings should be closed after the command")
	}
}

func TestSettingsCommandReportsLockAndCloses(t *testing.T) {
	lockedSettings(t)

	_, err := runCLI(t, "settings", "currency")
	if !errors.Is(err, settings.ErrLocked) {
		t.Fatalf("settings currency error = %v, want ErrLocked", err)
	}
	if app.backend != nil {
		t.Error("backend should be closed even when the command fails")
	}
}
