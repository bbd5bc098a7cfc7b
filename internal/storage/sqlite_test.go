//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(filepath.Join(t.TempDir(), "wcmi.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestSQLiteStoreTrainingRunRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	run := testRun("run-1", time.Date(2021, 4, 1, 12, 0, 0, 0, time.UTC))
	if err := store.SaveTrainingRun(ctx, run); err != nil {
		t.Fatalf("SaveTrainingRun: %v", err)
	}

	got, ok, err := store.GetTrainingRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrainingRun: %v", err)
	}
	if !ok {
		t.Fatal("expected run to exist")
	}
	if got.ID != run.ID || got.BatchSize != run.BatchSize || !got.StartedAt.Equal(run.StartedAt) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, run)
	}

	_, ok, err = store.GetTrainingRun(ctx, "missing")
	if err != nil {
		t.Fatalf("GetTrainingRun missing: %v", err)
	}
	if ok {
		t.Fatal("expected missing run to be absent")
	}
}

func TestSQLiteStoreUpsertsTrainingRun(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	run := testRun("run-1", time.Now().UTC())
	if err := store.SaveTrainingRun(ctx, run); err != nil {
		t.Fatalf("SaveTrainingRun: %v", err)
	}
	run.NumEpochs = 99
	if err := store.SaveTrainingRun(ctx, run); err != nil {
		t.Fatalf("SaveTrainingRun update: %v", err)
	}

	got, _, err := store.GetTrainingRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrainingRun: %v", err)
	}
	if got.NumEpochs != 99 {
		t.Fatalf("expected updated NumEpochs 99, got %d", got.NumEpochs)
	}

	runs, err := store.ListTrainingRuns(ctx)
	if err != nil {
		t.Fatalf("ListTrainingRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected upsert to keep a single row, got %d", len(runs))
	}
}

func TestSQLiteStoreEpochHistoryRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	history := EpochHistory{
		VersionedRecord: NewVersionedRecord(),
		RunID:           "run-1",
		Columns:         []string{"is_training", "mse_turns_tx"},
		Rows:            [][]float64{{0, 0.125}, {1, 0.5}},
	}
	if err := store.SaveEpochHistory(ctx, history); err != nil {
		t.Fatalf("SaveEpochHistory: %v", err)
	}

	got, ok, err := store.GetEpochHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetEpochHistory: %v", err)
	}
	if !ok {
		t.Fatal("expected history to exist")
	}
	if len(got.Columns) != 2 || got.Rows[1][1] != 0.5 {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}
