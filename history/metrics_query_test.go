package history

import (
	"errors"
	"testing"

	"github.com/justapithecus/lode/lode"

	"github.com/wod-wiki/wodwiki/metrics"
)

func TestQueryLatestMetrics_WriteAndRead(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	cfg := testConfig()
	client, err := NewLodeClientWithFactory(cfg, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}

	c := metrics.NewCollector("script-1", cfg.RunID)
	c.IncWorkoutStarted()
	c.IncWorkoutCompleted()
	snap := c.Snapshot()

	if err := client.WriteMetrics(t.Context(), []*metrics.Snapshot{&snap}); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	record, err := QueryLatestMetrics(t.Context(), ds, "", "")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}

	if record["run_id"] != cfg.RunID {
		t.Errorf("run_id = %v, want %q", record["run_id"], cfg.RunID)
	}
	if record["workouts_started"] != int64(1) {
		t.Errorf("workouts_started = %v, want 1", record["workouts_started"])
	}
}

func TestQueryLatestMetrics_FiltersByRunID(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	cfgA := testConfig()
	cfgA.RunID = "run-a"
	clientA, err := NewLodeClientWithFactory(cfgA, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	snapA := metrics.NewCollector("script-1", "run-a").Snapshot()
	if err := clientA.WriteMetrics(t.Context(), []*metrics.Snapshot{&snapA}); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	cfgB := testConfig()
	cfgB.RunID = "run-b"
	clientB, err := NewLodeClientWithFactory(cfgB, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	snapB := metrics.NewCollector("script-1", "run-b").Snapshot()
	if err := clientB.WriteMetrics(t.Context(), []*metrics.Snapshot{&snapB}); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	ds, err := NewReadDataset(cfgA.Dataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	record, err := QueryLatestMetrics(t.Context(), ds, "run-a", "")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}
	if record["run_id"] != "run-a" {
		t.Errorf("run_id = %v, want run-a", record["run_id"])
	}
}

func TestQueryLatestMetrics_NoneFound(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	ds, err := NewReadDataset("empty-dataset", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	_, err = QueryLatestMetrics(t.Context(), ds, "", "")
	if !errors.Is(err, ErrNoMetricsFound) {
		t.Errorf("expected ErrNoMetricsFound, got %v", err)
	}
}
