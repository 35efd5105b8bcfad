package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type poolGauge struct {
	name        string
	description string
	read        func(*pgxpool.Stat) int64
}

var poolGauges = []poolGauge{
	{"starkbank_db_pool_connections_total", "Total connections (idle + acquired + constructing)", func(s *pgxpool.Stat) int64 { return int64(s.TotalConns()) }},
	{"starkbank_db_pool_connections_idle", "Idle connections ready for checkout", func(s *pgxpool.Stat) int64 { return int64(s.IdleConns()) }},
	{"starkbank_db_pool_connections_acquired", "Connections currently acquired by ingestion", func(s *pgxpool.Stat) int64 { return int64(s.AcquiredConns()) }},
	{"starkbank_db_pool_acquires_total", "Cumulative successful acquires", func(s *pgxpool.Stat) int64 { return s.AcquireCount() }},
}

// ObservePoolMetrics registers observable gauges that report pgx pool health
// on the global meter provider. A nil pool registers nothing.
func ObservePoolMetrics(pool *pgxpool.Pool, poolName string) error {
	if pool == nil {
		return nil
	}
	normalized := strings.TrimSpace(poolName)
	if normalized == "" {
		normalized = "primary"
	}
	attrs := metric.WithAttributes(attribute.String("db_pool", normalized))

	meter := otel.Meter("postgres.pool")
	gauges := make([]metric.Int64ObservableGauge, len(poolGauges))
	observables := make([]metric.Observable, len(poolGauges))
	for i, g := range poolGauges {
		gauge, err := meter.Int64ObservableGauge(g.name,
			metric.WithDescription(g.description),
			metric.WithUnit("{connection}"))
		if err != nil {
			return fmt.Errorf("create %s: %w", g.name, err)
		}
		gauges[i] = gauge
		observables[i] = gauge
	}
	_, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		stat := pool.Stat()
		for i, g := range poolGauges {
			observer.ObserveInt64(gauges[i], g.read(stat), attrs)
		}
		return nil
	}, observables...)
	if err != nil {
		return fmt.Errorf("register pool callback: %w", err)
	}
	return nil
}
