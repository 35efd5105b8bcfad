package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
)

// CheckpointStore persists feed resume positions.
type CheckpointStore struct {
	pool *pgxpool.Pool
}

// NewCheckpointStore constructs a CheckpointStore backed by the provided pool.
func NewCheckpointStore(pool *pgxpool.Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

var _ checkpointstore.Store = (*CheckpointStore)(nil)

const (
	checkpointSelectSQL = `
SELECT feed, page_cursor, after_date, newest, exhausted, items, pages, run_id, updated_at
FROM ingest_checkpoints
WHERE feed = $1;
`

	checkpointListSQL = `
SELECT feed, page_cursor, after_date, newest, exhausted, items, pages, run_id, updated_at
FROM ingest_checkpoints
ORDER BY feed ASC;
`

	checkpointUpsertSQL = `
INSERT INTO ingest_checkpoints (feed, page_cursor, after_date, newest, exhausted, items, pages, run_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (feed) DO UPDATE SET
    page_cursor = EXCLUDED.page_cursor,
    after_date = EXCLUDED.after_date,
    newest = EXCLUDED.newest,
    exhausted = EXCLUDED.exhausted,
    items = EXCLUDED.items,
    pages = EXCLUDED.pages,
    run_id = EXCLUDED.run_id,
    updated_at = NOW();
`

	checkpointDeleteSQL = `DELETE FROM ingest_checkpoints WHERE feed = $1;`
)

// Load returns the checkpoint of feed.
func (s *CheckpointStore) Load(ctx context.Context, feed string) (checkpointstore.Checkpoint, bool, error) {
	if s == nil || s.pool == nil {
		return checkpointstore.Checkpoint{}, false, fmt.Errorf("checkpoint store: nil pool")
	}
	row := s.pool.QueryRow(ctx, checkpointSelectSQL, strings.TrimSpace(feed))
	cp, err := scanCheckpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return checkpointstore.Checkpoint{}, false, nil
	}
	if err != nil {
		return checkpointstore.Checkpoint{}, false, fmt.Errorf("load checkpoint %s: %w", feed, err)
	}
	return cp, true, nil
}

// Save upserts cp.
func (s *CheckpointStore) Save(ctx context.Context, cp checkpointstore.Checkpoint) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("checkpoint store: nil pool")
	}
	feed := strings.TrimSpace(cp.Feed)
	if feed == "" {
		return checkpointstore.ErrFeedRequired
	}
	newest := pgtype.Timestamptz{Time: cp.Newest.UTC(), Valid: !cp.Newest.IsZero()}
	if _, err := s.pool.Exec(ctx, checkpointUpsertSQL, feed, cp.Cursor, cp.After, newest, cp.Exhausted, cp.Items, cp.Pages, cp.RunID); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", feed, err)
	}
	return nil
}

// Reset deletes the checkpoint of feed.
func (s *CheckpointStore) Reset(ctx context.Context, feed string) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("checkpoint store: nil pool")
	}
	if _, err := s.pool.Exec(ctx, checkpointDeleteSQL, strings.TrimSpace(feed)); err != nil {
		return fmt.Errorf("reset checkpoint %s: %w", feed, err)
	}
	return nil
}

// List returns all checkpoints ordered by feed.
func (s *CheckpointStore) List(ctx context.Context) ([]checkpointstore.Checkpoint, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("checkpoint store: nil pool")
	}
	rows, err := s.pool.Query(ctx, checkpointListSQL)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []checkpointstore.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

func scanCheckpoint(row pgx.Row) (checkpointstore.Checkpoint, error) {
	var (
		cp     checkpointstore.Checkpoint
		newest pgtype.Timestamptz
	)
	err := row.Scan(&cp.Feed, &cp.Cursor, &cp.After, &newest, &cp.Exhausted, &cp.Items, &cp.Pages, &cp.RunID, &cp.UpdatedAt)
	if err != nil {
		return checkpointstore.Checkpoint{}, err
	}
	if newest.Valid {
		cp.Newest = newest.Time.UTC()
	}
	cp.UpdatedAt = cp.UpdatedAt.UTC()
	return cp, nil
}
