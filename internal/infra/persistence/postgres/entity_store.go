package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
)

// EntityStore persists raw ingested entities keyed by feed and id.
type EntityStore struct {
	pool *pgxpool.Pool
}

// NewEntityStore constructs an EntityStore backed by the provided pool.
func NewEntityStore(pool *pgxpool.Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

var _ checkpointstore.EntityStore = (*EntityStore)(nil)

// xmax = 0 only for rows created by this statement.
const entityUpsertSQL = `
INSERT INTO ingested_entities (feed, entity_id, entity_type, created, payload, ingested_at)
VALUES ($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb), NOW())
ON CONFLICT (feed, entity_id) DO UPDATE SET
    entity_type = EXCLUDED.entity_type,
    created = EXCLUDED.created,
    payload = EXCLUDED.payload,
    ingested_at = NOW()
RETURNING (xmax = 0) AS inserted;
`

const entityCountSQL = `SELECT COUNT(*) FROM ingested_entities WHERE feed = $1;`

// Upsert writes entities in one batch and reports how many rows were new.
func (s *EntityStore) Upsert(ctx context.Context, entities []checkpointstore.Entity) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("entity store: nil pool")
	}
	if len(entities) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, e := range entities {
		if strings.TrimSpace(e.Feed) == "" {
			return 0, checkpointstore.ErrFeedRequired
		}
		created := pgtype.Timestamptz{Time: e.Created.UTC(), Valid: !e.Created.IsZero()}
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		batch.Queue(entityUpsertSQL, e.Feed, e.ID, e.Type, created, payload)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range entities {
		var isNew bool
		if err := results.QueryRow().Scan(&isNew); err != nil {
			return inserted, fmt.Errorf("upsert entity %s/%s: %w", entities[i].Feed, entities[i].ID, err)
		}
		if isNew {
			inserted++
		}
	}
	return inserted, nil
}

// Count returns the number of stored entities of feed.
func (s *EntityStore) Count(ctx context.Context, feed string) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("entity store: nil pool")
	}
	var n int64
	if err := s.pool.QueryRow(ctx, entityCountSQL, feed).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entities %s: %w", feed, err)
	}
	return n, nil
}
