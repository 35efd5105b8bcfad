// Package migrations wires golang-migrate execution for the ingestion database.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migrations loader
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	dbmigrations "github.com/coachpo/starkbank/db/migrations"
	"github.com/coachpo/starkbank/pkg/observability"
)

var (
	errNotDirectory = errors.New("migrations path must be a directory")
	errInvalidSteps = errors.New("rollback steps must be positive")

	migrationsCounter   metric.Int64Counter
	migrationsCounterMu sync.Once
)

// Apply runs every pending migration. An empty migrationsDir uses the
// migrations embedded in the binary. A nil logger uses the global logger.
func Apply(ctx context.Context, dsn, migrationsDir string, logger observability.Logger) error {
	return run(ctx, dsn, migrationsDir, logger, "up", func(m *migrate.Migrate) error { return m.Up() })
}

// Rollback reverts the last steps migrations.
func Rollback(ctx context.Context, dsn, migrationsDir string, steps int, logger observability.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("rollback %d: %w", steps, errInvalidSteps)
	}
	return run(ctx, dsn, migrationsDir, logger, "down", func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

// Version reports the current schema version and whether it is dirty.
func Version(ctx context.Context, dsn, migrationsDir string) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := run(ctx, dsn, migrationsDir, observability.Noop(), "version", func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		version, dirty = v, d
		return err
	})
	return version, dirty, err
}

func run(ctx context.Context, dsn, migrationsDir string, logger observability.Logger, direction string, step func(*migrate.Migrate) error) error {
	logger = observability.Or(logger)

	src, label, err := openSource(migrationsDir)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("database migrations close", observability.Err(cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		_ = src.Close()
		return fmt.Errorf("ping migrations database: %w", err)
	}

	var driverConfig pgxv5.Config
	driver, err := pgxv5.WithInstance(db, &driverConfig)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}

	m, err := migrate.NewWithInstance("source", src, "pgx5", driver)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			logger.Error("database migrations source close", observability.Err(sourceErr))
		}
		if dbErr != nil {
			logger.Error("database migrations db close", observability.Err(dbErr))
		}
	}()

	logger.Info("running database migrations",
		observability.String("direction", direction),
		observability.String("path", label))

	if err := step(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			recordMigrationMetric(ctx, direction, "noop", label)
			logger.Info("database migrations up-to-date")
			return nil
		}
		recordMigrationMetric(ctx, direction, "failed", label)
		return fmt.Errorf("%s migrations: %w", direction, err)
	}

	logger.Info("database migrations applied successfully", observability.String("direction", direction))
	recordMigrationMetric(ctx, direction, "applied", label)
	return nil
}

func openSource(migrationsDir string) (source.Driver, string, error) {
	if strings.TrimSpace(migrationsDir) == "" {
		src, err := iofs.New(dbmigrations.Files, ".")
		if err != nil {
			return nil, "", fmt.Errorf("open embedded migrations: %w", err)
		}
		return src, "embedded", nil
	}
	resolvedDir, err := resolveDir(migrationsDir)
	if err != nil {
		return nil, "", err
	}
	src, err := source.Open(fileURL(resolvedDir))
	if err != nil {
		return nil, "", fmt.Errorf("open migrations source: %w", err)
	}
	return src, resolvedDir, nil
}

func resolveDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", fmt.Errorf("migrations path required")
	}

	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("migrations directory: %w", err)
		}
		return "", fmt.Errorf("stat migrations directory: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("migrations directory: %w", errNotDirectory)
	}

	return abs, nil
}

func fileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := new(url.URL)
	u.Scheme = "file"
	u.Path = slashed
	return u.String()
}

func recordMigrationMetric(ctx context.Context, direction, result, path string) {
	migrationsCounterMu.Do(func() {
		meter := otel.Meter("persistence.migrations")
		counter, err := meter.Int64Counter("starkbank_db_migrations_total",
			metric.WithDescription("Migrations executed via golang-migrate"),
			metric.WithUnit("{migration}"))
		if err == nil {
			migrationsCounter = counter
		}
	})
	if migrationsCounter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("direction", direction),
		attribute.String("result", result),
	}
	if path != "" {
		attrs = append(attrs, attribute.String("migrations_path", path))
	}
	migrationsCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
