//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
	"github.com/coachpo/starkbank/internal/infra/persistence/migrations"
	pgstore "github.com/coachpo/starkbank/internal/infra/persistence/postgres"
)

var (
	testStore   *pgstore.Store
	pgContainer testcontainers.Container
	setupErr    error
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_USER": "postgres", "POSTGRES_DB": "starkbank"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		setupErr = fmt.Errorf("start postgres container: %w", err)
	} else {
		pgContainer = container
		setupErr = initialiseDatabase(ctx)
	}
	if setupErr != nil {
		fmt.Fprintf(os.Stderr, "postgres integration tests skipped: %v\n", setupErr)
	}

	exitCode := m.Run()

	if testStore != nil {
		testStore.Close()
	}
	if pgContainer != nil {
		_ = pgContainer.Terminate(ctx)
	}
	os.Exit(exitCode)
}

func initialiseDatabase(ctx context.Context) error {
	host, err := pgContainer.Host(ctx)
	if err != nil {
		return fmt.Errorf("container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return fmt.Errorf("container port: %w", err)
	}
	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/starkbank?sslmode=disable", host, port.Port())

	if err := migrations.Apply(ctx, dsn, "", nil); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	store, err := pgstore.Open(ctx, dsn, 4)
	if err != nil {
		return err
	}
	testStore = store
	return nil
}

func TestCheckpointStoreRoundTrip(t *testing.T) {
	if setupErr != nil {
		t.Skipf("postgres setup unavailable: %v", setupErr)
	}
	ctx := context.Background()
	store := testStore.Checkpoints()
	runID := uuid.NewString()

	if err := store.Save(ctx, checkpointstore.Checkpoint{Feed: "paid-invoices", Cursor: "c100", Items: 100, Pages: 1, RunID: runID}); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	if err := store.Save(ctx, checkpointstore.Checkpoint{Feed: "paid-invoices", Exhausted: true, Items: 130, Pages: 2, RunID: runID}); err != nil {
		t.Fatalf("overwrite checkpoint: %v", err)
	}

	cp, ok, err := store.Load(ctx, "paid-invoices")
	if err != nil || !ok {
		t.Fatalf("load checkpoint: ok=%v err=%v", ok, err)
	}
	if !cp.Exhausted || cp.Cursor != "" || cp.Items != 130 || cp.RunID != runID {
		t.Fatalf("unexpected checkpoint %+v", cp)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list checkpoints: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one checkpoint, got %d", len(all))
	}

	if err := store.Reset(ctx, "paid-invoices"); err != nil {
		t.Fatalf("reset checkpoint: %v", err)
	}
	if _, ok, err := store.Load(ctx, "paid-invoices"); err != nil || ok {
		t.Fatalf("expected checkpoint removed: ok=%v err=%v", ok, err)
	}
}

func TestEntityStoreUpsertIsIdempotent(t *testing.T) {
	if setupErr != nil {
		t.Skipf("postgres setup unavailable: %v", setupErr)
	}
	ctx := context.Background()
	store := testStore.Entities()
	created := time.Date(2020, 3, 10, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(map[string]any{"id": "9000", "type": "paid"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	batch := []checkpointstore.Entity{
		{Feed: "invoice-logs", ID: "9000", Type: "paid", Created: created, Payload: payload},
		{Feed: "invoice-logs", ID: "9001", Type: "paid", Created: created},
	}
	n, err := store.Upsert(ctx, batch)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}
	n, err = store.Upsert(ctx, batch)
	if err != nil {
		t.Fatalf("repeat upsert: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 inserted on replay, got %d", n)
	}
	count, err := store.Count(ctx, "invoice-logs")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}
