// Package ingest drains StarkBank log feeds page by page into a sink,
// persisting a cursor checkpoint after every page so that an interrupted run
// resumes where it stopped.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/coachpo/starkbank/config"
	"github.com/coachpo/starkbank/internal/checks"
	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
	"github.com/coachpo/starkbank/internal/telemetry"
	"github.com/coachpo/starkbank/pkg/observability"
	"github.com/coachpo/starkbank/pkg/rest"
)

// Report summarises one feed within a run.
type Report struct {
	Feed      string
	Pages     int
	Items     int
	Inserted  int
	Cursor    string
	Exhausted bool
	Err       error
}

// Service ingests a fixed set of feeds.
type Service struct {
	client      *rest.Client
	checkpoints checkpointstore.Store
	sink        checkpointstore.EntityStore
	feeds       []config.FeedSettings
	fetchers    map[string]pageFunc

	logger      observability.Logger
	instruments *telemetry.Instruments
	maxPages    int
	newRunID    func() string
}

// Option customises a Service.
type Option func(*Service)

// WithLogger overrides the global logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithInstruments records ingested item counts.
func WithInstruments(instruments *telemetry.Instruments) Option {
	return func(s *Service) { s.instruments = instruments }
}

// WithMaxPages bounds the pages fetched per feed in one run; zero is unbounded.
func WithMaxPages(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxPages = n
		}
	}
}

// New validates feeds and builds a Service. A nil client resolves the
// process-wide default at run time.
func New(client *rest.Client, checkpoints checkpointstore.Store, sink checkpointstore.EntityStore, feeds []config.FeedSettings, opts ...Option) (*Service, error) {
	if checkpoints == nil {
		return nil, errors.New("ingest: checkpoint store required")
	}
	if sink == nil {
		return nil, errors.New("ingest: sink required")
	}
	if len(feeds) == 0 {
		return nil, errors.New("ingest: at least one feed required")
	}
	s := &Service{
		client:      client,
		checkpoints: checkpoints,
		sink:        sink,
		fetchers:    make(map[string]pageFunc, len(feeds)),
		newRunID:    uuid.NewString,
	}
	seen := make(map[string]struct{}, len(feeds))
	for _, feed := range feeds {
		feed.Name = strings.TrimSpace(feed.Name)
		if feed.Name == "" {
			return nil, errors.New("ingest: feed name required")
		}
		if _, dup := seen[feed.Name]; dup {
			return nil, fmt.Errorf("ingest: duplicate feed %q", feed.Name)
		}
		seen[feed.Name] = struct{}{}
		fetch, err := fetcherFor(feed.Resource)
		if err != nil {
			return nil, fmt.Errorf("ingest: feed %s: %w", feed.Name, err)
		}
		if feed.PageSize == 0 {
			feed.PageSize = checks.MaxPageSize
		}
		if _, err := checks.PageLimit(&feed.PageSize); err != nil {
			return nil, fmt.Errorf("ingest: feed %s: %w", feed.Name, err)
		}
		s.fetchers[feed.Name] = fetch
		s.feeds = append(s.feeds, feed)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = observability.Or(s.logger)
	return s, nil
}

// RunOnce ingests every feed concurrently. Feeds fail independently; the
// returned error joins every feed failure.
func (s *Service) RunOnce(ctx context.Context) ([]Report, error) {
	runID := s.newRunID()
	reports := make([]Report, len(s.feeds))

	var wg conc.WaitGroup
	for i, feed := range s.feeds {
		wg.Go(func() {
			reports[i] = s.ingestFeed(ctx, runID, feed)
		})
	}
	wg.Wait()

	var failures []error
	for _, r := range reports {
		if r.Err != nil {
			failures = append(failures, fmt.Errorf("feed %s: %w", r.Feed, r.Err))
		}
	}
	if len(failures) > 0 {
		return reports, observability.AggregateErrors("ingest run", failures, observability.String("run_id", runID))
	}
	return reports, nil
}

// Run calls RunOnce every interval until ctx is done. Run failures are logged
// and do not stop the loop.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("ingest: interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("ingest run failed", observability.Err(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) ingestFeed(ctx context.Context, runID string, feed config.FeedSettings) Report {
	report := Report{Feed: feed.Name}
	cp, ok, err := s.checkpoints.Load(ctx, feed.Name)
	if err != nil {
		report.Err = err
		return report
	}
	if !ok {
		cp = checkpointstore.Checkpoint{Feed: feed.Name, Exhausted: true}
	}
	if cp.Exhausted {
		cp = startPass(cp, feed)
	}
	cp.RunID = runID

	fetch := s.fetchers[feed.Name]
	limit := feed.PageSize
	log := s.logger
	for s.maxPages == 0 || report.Pages < s.maxPages {
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		entities, next, err := fetch(ctx, s.client, feed.Name, pageRequest{
			Cursor: cp.Cursor,
			Limit:  &limit,
			After:  cp.After,
			Types:  feed.Types,
		})
		if err != nil {
			report.Err = err
			break
		}
		inserted, err := s.sink.Upsert(ctx, entities)
		if err != nil {
			report.Err = err
			break
		}
		s.instruments.RecordIngested(ctx, feed.Name, len(entities))

		for _, e := range entities {
			if e.Created.After(cp.Newest) {
				cp.Newest = e.Created.UTC()
			}
		}
		cp.Cursor = next
		cp.Exhausted = next == ""
		cp.Items += int64(len(entities))
		cp.Pages++
		if err := s.checkpoints.Save(ctx, cp); err != nil {
			report.Err = err
			break
		}

		report.Pages++
		report.Items += len(entities)
		report.Inserted += inserted
		log.Debug("ingest page stored",
			observability.String("run_id", runID),
			observability.String("feed", feed.Name),
			observability.Int("items", len(entities)),
			observability.String("cursor", next))
		if cp.Exhausted {
			break
		}
	}

	report.Cursor = cp.Cursor
	report.Exhausted = cp.Exhausted
	fields := []observability.Field{
		observability.String("run_id", runID),
		observability.String("feed", feed.Name),
		observability.Int("pages", report.Pages),
		observability.Int("items", report.Items),
		observability.Int("inserted", report.Inserted),
	}
	if report.Err != nil {
		log.Error("ingest feed failed", append(fields, observability.Err(report.Err))...)
	} else {
		log.Info("ingest feed done", fields...)
	}
	return report
}

// startPass resets cp for a new walk from the head of the feed. Later passes
// only ask for entities created on or after the day of the newest one seen;
// the overlap is absorbed by idempotent sinks.
func startPass(cp checkpointstore.Checkpoint, feed config.FeedSettings) checkpointstore.Checkpoint {
	cp.Cursor = ""
	cp.Exhausted = false
	cp.After = strings.TrimSpace(feed.After)
	if !cp.Newest.IsZero() {
		newest := cp.Newest
		cp.After = checks.FormatDate(&newest)
	}
	return cp
}

// Checkpoints lists the stored checkpoints.
func (s *Service) Checkpoints(ctx context.Context) ([]checkpointstore.Checkpoint, error) {
	return s.checkpoints.List(ctx)
}

// Reset forgets the checkpoint of feed so the next run starts over.
func (s *Service) Reset(ctx context.Context, feed string) error {
	return s.checkpoints.Reset(ctx, feed)
}
