package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionDays: 30,
	}, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{SessionID: "s1", Source: "incremental", Text: "first take", DurationSeconds: 4.2},
		{SessionID: "s2", Source: "fallback", Text: "second take", DurationSeconds: 12.8, RecordingPath: "/tmp/rec.wav"},
	}
	for i, e := range entries {
		e.CreatedAt = time.Now().Add(time.Duration(i) * time.Second).UTC()
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}

	// Newest first
	if got[0].SessionID != "s2" {
		t.Errorf("first entry session = %q, want s2", got[0].SessionID)
	}
	if got[0].Source != "fallback" || got[0].RecordingPath != "/tmp/rec.wav" {
		t.Errorf("entry fields not round-tripped: %+v", got[0])
	}
	if got[1].Text != "first take" {
		t.Errorf("second entry text = %q, want %q", got[1].Text, "first take")
	}
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Insert(ctx, Entry{
			SessionID: "s",
			Source:    "incremental",
			Text:      "entry",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second).UTC(),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d entries, want 3", len(got))
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := Entry{SessionID: "old", Source: "incremental", Text: "stale",
		CreatedAt: time.Now().Add(-60 * 24 * time.Hour).UTC()}
	fresh := Entry{SessionID: "new", Source: "incremental", Text: "fresh",
		CreatedAt: time.Now().UTC()}

	if err := store.Insert(ctx, old); err != nil {
		t.Fatalf("Insert old: %v", err)
	}
	if err := store.Insert(ctx, fresh); err != nil {
		t.Fatalf("Insert fresh: %v", err)
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "new" {
		t.Errorf("after prune got %+v, want only the fresh entry", got)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var store *Store

	if err := store.Insert(context.Background(), Entry{Text: "x"}); err != nil {
		t.Errorf("nil store Insert = %v, want nil", err)
	}
	if got, err := store.Recent(context.Background(), 10); err != nil || got != nil {
		t.Errorf("nil store Recent = %v, %v, want nil, nil", got, err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("nil store Close = %v, want nil", err)
	}
}
