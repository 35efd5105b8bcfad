package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/starkbank/internal/domain/checkpointstore"
)

// FileSink appends entities as JSON lines to <dir>/<feed>.jsonl. Replays after
// a crash may append an entity twice; readers dedupe on id.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

var _ checkpointstore.EntityStore = (*FileSink)(nil)

// NewFileSink creates dir when missing.
func NewFileSink(dir string) (*FileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("file sink: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

type fileRecord struct {
	Feed    string          `json:"feed"`
	ID      string          `json:"id"`
	Type    string          `json:"type,omitempty"`
	Created *time.Time      `json:"created,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Path returns the file entities of feed are appended to.
func (s *FileSink) Path(feed string) string {
	return filepath.Join(s.dir, feed+".jsonl")
}

// Upsert appends entities and fsyncs the file before returning.
func (s *FileSink) Upsert(ctx context.Context, entities []checkpointstore.Entity) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(entities) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byFeed := make(map[string][]checkpointstore.Entity)
	var order []string
	for _, e := range entities {
		if strings.TrimSpace(e.Feed) == "" {
			return 0, checkpointstore.ErrFeedRequired
		}
		if _, seen := byFeed[e.Feed]; !seen {
			order = append(order, e.Feed)
		}
		byFeed[e.Feed] = append(byFeed[e.Feed], e)
	}

	written := 0
	for _, feed := range order {
		n, err := s.append(feed, byFeed[feed])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (s *FileSink) append(feed string, entities []checkpointstore.Entity) (int, error) {
	f, err := os.OpenFile(s.Path(feed), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("file sink: open %s: %w", feed, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entities {
		rec := fileRecord{Feed: e.Feed, ID: e.ID, Type: e.Type, Payload: e.Payload}
		if !e.Created.IsZero() {
			created := e.Created.UTC()
			rec.Created = &created
		}
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("file sink: encode %s/%s: %w", feed, e.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("file sink: flush %s: %w", feed, err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("file sink: sync %s: %w", feed, err)
	}
	return len(entities), nil
}
