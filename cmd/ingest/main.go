// Command ingest drains StarkBank log feeds into PostgreSQL or JSON-lines
// files, resuming each feed from its last stored cursor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coachpo/starkbank/config"
	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
	"github.com/coachpo/starkbank/internal/infra/persistence/migrations"
	"github.com/coachpo/starkbank/internal/infra/persistence/postgres"
	"github.com/coachpo/starkbank/internal/ingest"
	"github.com/coachpo/starkbank/internal/telemetry"
	"github.com/coachpo/starkbank/pkg/observability"
)

const telemetryShutdownTimeout = 5 * time.Second

type options struct {
	configPath string
	once       bool
	status     bool
	reset      string
	maxPages   int
}

func main() {
	opts := parseFlags()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file")
	flag.BoolVar(&opts.once, "once", false, "Run every feed once and exit")
	flag.BoolVar(&opts.status, "status", false, "Print stored checkpoints and exit")
	flag.StringVar(&opts.reset, "reset", "", "Forget the checkpoint of the named feed and exit")
	flag.IntVar(&opts.maxPages, "max-pages", 0, "Maximum pages per feed and run (0 for unbounded)")
	flag.Parse()
	return opts
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(ctx, opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, zl, err := observability.NewZapProduction(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	observability.SetLogger(logger)

	provider, err := telemetry.NewProvider(ctx, cfg.TelemetryConfig())
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", observability.Err(err))
		}
	}()
	meter := provider.Meter(telemetry.InstrumentationName)
	instruments, err := telemetry.NewInstruments(meter)
	if err != nil {
		return err
	}

	checkpoints, sink, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	client, err := cfg.NewClient(logger, meter)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	if len(cfg.Ingest.Feeds) == 0 {
		return errors.New("ingest.feeds: at least one feed required")
	}
	svc, err := ingest.New(client, checkpoints, sink, cfg.Ingest.Feeds,
		ingest.WithLogger(logger),
		ingest.WithInstruments(instruments),
		ingest.WithMaxPages(opts.maxPages))
	if err != nil {
		return err
	}

	switch {
	case opts.status:
		return printStatus(ctx, svc)
	case strings.TrimSpace(opts.reset) != "":
		if err := svc.Reset(ctx, opts.reset); err != nil {
			return err
		}
		logger.Info("checkpoint reset", observability.String("feed", opts.reset))
		return nil
	case opts.once:
		_, err := svc.RunOnce(ctx)
		return err
	}

	logger.Info("ingest started",
		observability.Int("feeds", len(cfg.Ingest.Feeds)),
		observability.Duration("interval", cfg.Ingest.Interval))
	if err := svc.Run(ctx, cfg.Ingest.Interval); err != nil {
		return err
	}
	logger.Info("ingest stopped")
	return nil
}

func openStores(ctx context.Context, cfg config.Settings, logger observability.Logger) (checkpointstore.Store, checkpointstore.EntityStore, func(), error) {
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		sink, err := ingest.NewFileSink(cfg.Ingest.OutputDir)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("no database configured; checkpoints are kept in memory",
			observability.String("output_dir", cfg.Ingest.OutputDir))
		return checkpointstore.NewMemory(), sink, func() {}, nil
	}

	if err := migrations.Apply(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir, logger); err != nil {
		return nil, nil, nil, err
	}
	store, err := postgres.Open(ctx, cfg.Database.DSN, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	return store.Checkpoints(), store.Entities(), store.Close, nil
}

func printStatus(ctx context.Context, svc *ingest.Service) error {
	all, err := svc.Checkpoints(ctx)
	if err != nil {
		return err
	}
	for _, cp := range all {
		fmt.Printf("%s\tcursor=%q\tafter=%s\texhausted=%t\titems=%d\tpages=%d\tupdated=%s\n",
			cp.Feed, cp.Cursor, cp.After, cp.Exhausted, cp.Items, cp.Pages, cp.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}
