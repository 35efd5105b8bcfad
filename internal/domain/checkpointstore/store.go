// Package checkpointstore defines persistence contracts for resumable feed ingestion.
package checkpointstore

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
)

// ErrFeedRequired is returned when a checkpoint or entity lacks its feed name.
var ErrFeedRequired = errors.New("checkpoint store: feed required")

// Checkpoint is the resume position of one feed. Cursor is the opaque token
// of the next page to fetch within the pass filtered by After. Once a pass is
// Exhausted the next one starts without a cursor, filtered from the day of
// Newest.
type Checkpoint struct {
	Feed      string
	Cursor    string
	After     string
	Newest    time.Time
	Exhausted bool
	Items     int64
	Pages     int64
	RunID     string
	UpdatedAt time.Time
}

// Entity is one ingested API entity kept verbatim.
type Entity struct {
	Feed    string
	ID      string
	Type    string
	Created time.Time
	Payload json.RawMessage
}

// Store abstracts checkpoint persistence.
type Store interface {
	Load(ctx context.Context, feed string) (Checkpoint, bool, error)
	Save(ctx context.Context, cp Checkpoint) error
	Reset(ctx context.Context, feed string) error
	List(ctx context.Context) ([]Checkpoint, error)
}

// EntityStore persists ingested entities idempotently by (feed, id).
type EntityStore interface {
	Upsert(ctx context.Context, entities []Entity) (int, error)
}
