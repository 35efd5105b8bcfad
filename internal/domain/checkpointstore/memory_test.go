package checkpointstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryCheckpoints(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, ok, err := store.Load(ctx, "paid-invoices")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, store.Save(ctx, Checkpoint{Feed: " "}), ErrFeedRequired)
	require.NoError(t, store.Save(ctx, Checkpoint{Feed: "paid-invoices", Cursor: "c100", Items: 100, Pages: 1}))
	require.NoError(t, store.Save(ctx, Checkpoint{Feed: "a-feed", Exhausted: true}))

	cp, ok, err := store.Load(ctx, "paid-invoices")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c100", cp.Cursor)
	require.False(t, cp.UpdatedAt.IsZero())

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "a-feed", all[0].Feed)

	require.NoError(t, store.Reset(ctx, "paid-invoices"))
	_, ok, err = store.Load(ctx, "paid-invoices")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	n, err := store.Upsert(ctx, []Entity{{Feed: "f", ID: "1"}, {Feed: "f", ID: "2"}})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = store.Upsert(ctx, []Entity{{Feed: "f", ID: "2", Type: "paid"}, {Feed: "f", ID: "3"}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	entities := store.Entities("f")
	require.Len(t, entities, 3)
	require.Equal(t, "paid", entities[1].Type)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemory()
	_, _, err := store.Load(ctx, "f")
	require.True(t, errors.Is(err, context.Canceled))
}
