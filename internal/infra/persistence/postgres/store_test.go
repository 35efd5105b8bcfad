package postgres

import (
	"context"
	"testing"

	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
)

func TestNewStoreAllowsNilPool(t *testing.T) {
	store := New(nil)
	if store == nil {
		t.Fatalf("expected store instance")
	}
	if store.Pool() != nil {
		t.Fatalf("expected nil pool passthrough")
	}
	store.Close()
}

func TestStoresRejectNilPool(t *testing.T) {
	ctx := context.Background()
	checkpoints := New(nil).Checkpoints()
	if _, _, err := checkpoints.Load(ctx, "feed"); err == nil {
		t.Fatalf("expected nil pool error on load")
	}
	if err := checkpoints.Save(ctx, checkpointstore.Checkpoint{Feed: "feed"}); err == nil {
		t.Fatalf("expected nil pool error on save")
	}
	if err := checkpoints.Reset(ctx, "feed"); err == nil {
		t.Fatalf("expected nil pool error on reset")
	}
	if _, err := checkpoints.List(ctx); err == nil {
		t.Fatalf("expected nil pool error on list")
	}

	entities := New(nil).Entities()
	if _, err := entities.Upsert(ctx, []checkpointstore.Entity{{Feed: "feed", ID: "1"}}); err == nil {
		t.Fatalf("expected nil pool error on upsert")
	}
	if _, err := entities.Count(ctx, "feed"); err == nil {
		t.Fatalf("expected nil pool error on count")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " ", 0); err == nil {
		t.Fatalf("expected dsn error")
	}
	if _, err := Open(context.Background(), "postgres://%zz", 0); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestObservePoolMetricsIgnoresNilPool(t *testing.T) {
	if err := ObservePoolMetrics(nil, ""); err != nil {
		t.Fatalf("expected nil pool to be ignored: %v", err)
	}
}
