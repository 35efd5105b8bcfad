package checkpointstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store and EntityStore used by tests and dry runs.
type Memory struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
	entities    map[string]map[string]Entity
	clock       func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		checkpoints: make(map[string]Checkpoint),
		entities:    make(map[string]map[string]Entity),
		clock:       time.Now,
	}
}

// Load returns the checkpoint for feed.
func (m *Memory) Load(ctx context.Context, feed string) (Checkpoint, bool, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[strings.TrimSpace(feed)]
	return cp, ok, nil
}

// Save stores cp, stamping UpdatedAt.
func (m *Memory) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp.Feed = strings.TrimSpace(cp.Feed)
	if cp.Feed == "" {
		return ErrFeedRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp.UpdatedAt = m.clock().UTC()
	m.checkpoints[cp.Feed] = cp
	return nil
}

// Reset forgets the checkpoint of feed.
func (m *Memory) Reset(ctx context.Context, feed string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, strings.TrimSpace(feed))
	return nil
}

// List returns every checkpoint ordered by feed.
func (m *Memory) List(ctx context.Context) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Checkpoint, 0, len(m.checkpoints))
	for _, cp := range m.checkpoints {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feed < out[j].Feed })
	return out, nil
}

// Upsert stores entities keyed by feed and id and reports how many were new.
func (m *Memory) Upsert(ctx context.Context, entities []Entity) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, e := range entities {
		if strings.TrimSpace(e.Feed) == "" {
			return inserted, ErrFeedRequired
		}
		byID, ok := m.entities[e.Feed]
		if !ok {
			byID = make(map[string]Entity)
			m.entities[e.Feed] = byID
		}
		if _, exists := byID[e.ID]; !exists {
			inserted++
		}
		byID[e.ID] = e
	}
	return inserted, nil
}

// Entities returns the stored entities of feed ordered by id.
func (m *Memory) Entities(feed string) []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entity, 0, len(m.entities[feed]))
	for _, e := range m.entities[feed] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
