package memory

import (
	"context"
	"testing"
)

func TestExporterReplacesContents(t *testing.T) {
	e := New("")
	ctx := context.Background()

	ref, err := e.ExportTransactions(ctx, [][]string{{"a", "b"}, {"1", "2"}})
	if err != nil || ref != "mem:Transactions!A1:2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	if _, err := e.ExportTransactions(ctx, [][]string{{"a", "b"}}); err != nil {
		t.Fatal(err)
	}

	got := e.Records()
	if len(got) != 1 || got[0][0] != "a" {
		t.Fatalf("expected last export only, got %v", got)
	}
	if e.Exports() != 2 {
		t.Fatalf("exports = %d", e.Exports())
	}

	got[0][0] = "changed"
	if e.Records()[0][0] != "a" {
		t.Fatal("Records must return a copy")
	}
}
